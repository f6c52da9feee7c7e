package job_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"avmerge/internal/config"
	"avmerge/internal/job"
	"avmerge/internal/media/ffmpeg"
	"avmerge/internal/merge"
	"avmerge/internal/resolve"
	"avmerge/internal/services"
	"avmerge/internal/testsupport"
)

type recordingObserver struct {
	stages []job.Stage
	kinds  []services.Kind
}

func (r *recordingObserver) StageStarted(stage job.Stage) { r.stages = append(r.stages, stage) }

func (r *recordingObserver) JobFinished(kind services.Kind, _ time.Duration) {
	r.kinds = append(r.kinds, kind)
}

func newOrchestrator(t *testing.T, opts ...job.Option) (*job.Orchestrator, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMediaTools())
	merger := merge.New(ffmpeg.New(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary), nil)
	opts = append([]job.Option{job.WithIDGenerator(func() string { return "job1" })}, opts...)
	return job.New(cfg.Paths.UploadDir, cfg.Paths.OutputDir, merger, nil, opts...), cfg
}

func upload(role, name, content string) resolve.Upload {
	return resolve.Upload{Role: role, Filename: name, Body: strings.NewReader(content)}
}

// uploadFixture streams a file produced by one of the testsupport writers.
func uploadFixture(t *testing.T, role, name string, write func(testing.TB, string)) resolve.Upload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	write(t, path)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return resolve.Upload{Role: role, Filename: name, Body: f}
}

func TestRunTrimsToAudioPlusPad(t *testing.T) {
	observer := &recordingObserver{}
	orc, cfg := newOrchestrator(t, job.WithObserver(observer))

	result, err := orc.Run(context.Background(), job.Request{
		Video: upload("video", "v.mp4", "duration=10.0\n"),
		Audio: upload("audio", "a.mp3", "duration=3.0\n"),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Video.String() != "10.00 seconds" || result.Audio.String() != "3.00 seconds" || result.Output.String() != "3.50 seconds" {
		t.Fatalf("unexpected durations video=%s audio=%s output=%s", result.Video, result.Audio, result.Output)
	}
	if result.Message != job.SuccessMessage {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.OutputName != "merged_job1.mp4" {
		t.Fatalf("unexpected output name %q", result.OutputName)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "merged_job1.mp4")); err != nil {
		t.Fatalf("expected output retained: %v", err)
	}
	if left := testsupport.ListFiles(t, cfg.Paths.UploadDir); len(left) != 0 {
		t.Fatalf("expected input temporaries removed, found %v", left)
	}
	if !slices.Equal(observer.stages, job.Stages) {
		t.Fatalf("unexpected stage sequence %v", observer.stages)
	}
	if len(observer.kinds) != 1 || observer.kinds[0] != "" {
		t.Fatalf("expected one successful completion, got %v", observer.kinds)
	}
	calls := testsupport.ToolCalls(t, cfg, "ffmpeg")
	if len(calls) != 1 || !strings.Contains(calls[0], "-t 3.5") {
		t.Fatalf("expected a single ffmpeg run with -t 3.5, got %q", calls)
	}
}

func TestRunUnknownAudioDurationUsesShortest(t *testing.T) {
	orc, cfg := newOrchestrator(t)

	result, err := orc.Run(context.Background(), job.Request{
		Video:  upload("video", "v.mp4", "duration=10.0\n"),
		Audio:  uploadFixture(t, "audio", "a.wav", testsupport.WriteUnprobeable),
		Format: "mkv",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Audio.String() != "Unknown" {
		t.Fatalf("expected unknown audio duration, got %s", result.Audio)
	}
	if result.OutputName != "merged_job1.mkv" {
		t.Fatalf("unexpected output name %q", result.OutputName)
	}
	calls := testsupport.ToolCalls(t, cfg, "ffmpeg")
	if len(calls) != 1 || !strings.Contains(calls[0], "-shortest") || strings.Contains(calls[0], " -t ") {
		t.Fatalf("expected shortest-wins invocation, got %q", calls)
	}
}

func TestRunToolFailureRemovesEverything(t *testing.T) {
	observer := &recordingObserver{}
	orc, cfg := newOrchestrator(t, job.WithObserver(observer))

	_, err := orc.Run(context.Background(), job.Request{
		Video: uploadFixture(t, "video", "v.mp4", testsupport.WriteCorruptMedia),
		Audio: upload("audio", "a.mp3", "duration=3.0\n"),
	})
	if !errors.Is(err, services.ErrMergeToolFailed) {
		t.Fatalf("expected merge tool failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found when processing input") {
		t.Fatalf("expected tool diagnostic in error, got %q", err.Error())
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.OutputDir} {
		if left := testsupport.ListFiles(t, dir); len(left) != 0 {
			t.Fatalf("expected %s empty after failure, found %v", dir, left)
		}
	}
	if observer.stages[len(observer.stages)-1] != job.StageMerging {
		t.Fatalf("expected failure during merging, stages=%v", observer.stages)
	}
	if observer.kinds[0] != services.KindMergeToolFailed {
		t.Fatalf("unexpected completion kind %q", observer.kinds[0])
	}
}

func TestRunDownloadFailureLeavesNoFiles(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	orc, cfg := newOrchestrator(t)
	audioURL := srv.URL + "/a.mp3"
	_, err := orc.Run(context.Background(), job.Request{
		Video: upload("video", "v.mp4", "duration=10.0\n"),
		Audio: resolve.URL{Role: "audio", RawURL: audioURL, Client: srv.Client()},
	})
	var dlErr *services.DownloadError
	if !errors.As(err, &dlErr) || dlErr.URL != audioURL {
		t.Fatalf("expected DownloadError naming %s, got %v", audioURL, err)
	}
	if left := testsupport.ListFiles(t, cfg.Paths.UploadDir); len(left) != 0 {
		t.Fatalf("expected no temporaries, found %v", left)
	}
	if calls := testsupport.ToolCalls(t, cfg, "ffmpeg"); len(calls) != 0 {
		t.Fatalf("expected no merge attempt, got %q", calls)
	}
}

func TestRunIgnoresCancellation(t *testing.T) {
	orc, _ := newOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := orc.Run(ctx, job.Request{
		Video: upload("video", "v.mp4", "duration=2.0\n"),
		Audio: upload("audio", "a.mp3", "duration=1.0\n"),
	}); err != nil {
		t.Fatalf("expected job to run despite cancelled context, got %v", err)
	}
}

func TestRunRejectsUnsupportedFormat(t *testing.T) {
	orc, cfg := newOrchestrator(t)
	_, err := orc.Run(context.Background(), job.Request{
		Video:  upload("video", "v.mp4", "duration=2.0\n"),
		Audio:  upload("audio", "a.mp3", "duration=1.0\n"),
		Format: "avi",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if left := testsupport.ListFiles(t, cfg.Paths.UploadDir); len(left) != 0 {
		t.Fatalf("expected nothing written, found %v", left)
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "mp4", true},
		{"MOV", "mov", true},
		{".mkv", "mkv", true},
		{"webm", "webm", false},
	}
	for _, tt := range tests {
		got, ok := job.NormalizeFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeFormat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
