package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeMedia()
	c.normalizeDownload()
	c.normalizeRetention()
	c.normalizeLogging()
	return nil
}

// applyEnv lets deployment environments override the few values that tend
// to differ per host without editing the TOML file.
func (c *Config) applyEnv() {
	if value, ok := os.LookupEnv("AVMERGE_API_TOKEN"); ok && c.Server.APIToken == "" {
		c.Server.APIToken = value
	}
	if value, ok := os.LookupEnv("AVMERGE_PUBLIC_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Server.PublicBaseURL = value
	}
	if value, ok := os.LookupEnv("AVMERGE_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TestFilesDir) == "" {
		c.Paths.TestFilesDir = defaultTestFilesDir
	}
	if c.Paths.TestFilesDir, err = expandPath(c.Paths.TestFilesDir); err != nil {
		return fmt.Errorf("paths.test_files_dir: %w", err)
	}
	c.Paths.LogDir = strings.TrimSpace(c.Paths.LogDir)
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicBaseURL), "/")
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = defaultPublicBaseURL
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = defaultReadHeaderTimeout
	}
	if c.Server.IdleTimeoutSeconds <= 0 {
		c.Server.IdleTimeoutSeconds = defaultIdleTimeout
	}
	if c.Server.MultipartMemoryMiB <= 0 {
		c.Server.MultipartMemoryMiB = defaultMultipartMemoryMiB
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultDownloadUserAgent
	}
}

func (c *Config) normalizeRetention() {
	if c.Retention.MaxAgeMinutes == 0 {
		c.Retention.MaxAgeMinutes = defaultRetentionMaxAge
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
