package api

import (
	"errors"
	"testing"

	"avmerge/internal/config"
	"avmerge/internal/deps"
	"avmerge/internal/job"
	"avmerge/internal/media"
	"avmerge/internal/preflight"
	"avmerge/internal/services"
)

func TestFromResultFormatsDurations(t *testing.T) {
	resp := FromResult(job.Result{
		Message: job.SuccessMessage,
		Video:   media.KnownDuration(10),
		Audio:   media.UnknownDuration(),
		Output:  media.KnownDuration(3.5),
	}, DownloadPath("merged_x.mp4"))

	if !resp.Success || resp.Message != "Files merged successfully" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.VideoDuration != "10.00 seconds" || resp.AudioDuration != "Unknown" || resp.OutputDuration != "3.50 seconds" {
		t.Fatalf("unexpected durations %+v", resp)
	}
	if resp.DownloadURL != "/download/merged_x.mp4" {
		t.Fatalf("unexpected download url %q", resp.DownloadURL)
	}
}

func TestDownloadURLJoinsBase(t *testing.T) {
	if got := DownloadURL("https://media.example.com/", "merged_x.mkv"); got != "https://media.example.com/download/merged_x.mkv" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestFromErrorUsesDeepestDiagnostic(t *testing.T) {
	tool := &services.ToolError{Tool: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"}
	resp := FromError(services.Wrap(services.ErrMergeToolFailed, "merging", "remux", "", tool))
	if resp.Detail != "ffmpeg exited with status 1: Invalid data found when processing input" {
		t.Fatalf("unexpected detail %q", resp.Detail)
	}
	if resp.Kind != "merge_tool_failed" {
		t.Fatalf("unexpected kind %q", resp.Kind)
	}

	plain := FromError(errors.New("disk full"))
	if plain.Detail != "disk full" || plain.Kind != "unexpected" {
		t.Fatalf("unexpected plain error body %+v", plain)
	}
}

func TestBuildStatusReadiness(t *testing.T) {
	cfg := config.Default()
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: true},
		{Name: "FFprobe", Available: false},
	}
	checks := []preflight.Result{{Name: "Output directory", Passed: true}}

	if BuildStatus(&cfg, statuses, checks).Ready {
		t.Fatal("expected missing ffprobe to make status not ready")
	}
	statuses[1].Available = true
	status := BuildStatus(&cfg, statuses, checks)
	if !status.Ready {
		t.Fatal("expected ready status")
	}
	if len(status.Dependencies) != 2 || len(status.Checks) != 1 {
		t.Fatalf("unexpected conversion %+v", status)
	}
}

func TestFromErrorUsesClientMessage(t *testing.T) {
	resp := FromError(services.Wrap(services.ErrNotFound, "", "", "File not found", nil))
	if resp.Detail != "File not found" || resp.Kind != "not_found" {
		t.Fatalf("unexpected body %+v", resp)
	}

	nested := FromError(services.Wrap(services.ErrValidation, "", "decode body", "invalid JSON request", errors.New("unexpected EOF")))
	if nested.Detail != "invalid JSON request: unexpected EOF" {
		t.Fatalf("unexpected detail %q", nested.Detail)
	}
}
