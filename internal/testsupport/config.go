package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"avmerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The upload and output directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TestFilesDir = filepath.Join(base, "test_files")
	cfgVal.Paths.LogDir = ""
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.PublicBaseURL = "http://media.test"
	cfgVal.Logging.Format = "json"
	cfgVal.Download.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken enables bearer authentication on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithRetention overrides the sweep age threshold in minutes.
func WithRetention(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retention.MaxAgeMinutes = minutes
	}
}

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := b.binDir()
		for _, name := range names {
			writeScript(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithMediaTools installs scripted ffmpeg and ffprobe stand-ins and points the
// config at them. See WriteMedia for the file format they understand.
func WithMediaTools() ConfigOption {
	return func(b *configBuilder) {
		binDir := b.binDir()
		ffmpeg := filepath.Join(binDir, "ffmpeg")
		ffprobe := filepath.Join(binDir, "ffprobe")
		writeScript(b.t, ffmpeg, ffmpegScript(ffmpeg+".calls"))
		writeScript(b.t, ffprobe, ffprobeScript(ffprobe+".calls"))
		b.cfg.Media.FFmpegBinary = ffmpeg
		b.cfg.Media.FFprobeBinary = ffprobe
	}
}

func (b *configBuilder) binDir() string {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return binDir
}

func writeScript(t testing.TB, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", filepath.Base(path), err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
