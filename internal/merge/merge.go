// Package merge combines one video input with one audio input into a single
// output trimmed to the audio length plus a fixed pad.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"avmerge/internal/logging"
	"avmerge/internal/media"
	"avmerge/internal/services"
)

// PadSeconds is appended to the audio duration to form the output length.
const PadSeconds = 0.5

// Tool is the external media tool the merger drives.
type Tool interface {
	ProbeDuration(ctx context.Context, path string) (media.Duration, error)
	Remux(ctx context.Context, req media.RemuxRequest) error
}

// Outcome reports what a merge produced.
type Outcome struct {
	OutputPath    string
	AudioDuration media.Duration
	// Target is the requested output length; unknown means shortest-wins.
	Target media.Duration
}

// Merger runs one remux per call. It never retries.
type Merger struct {
	tool   Tool
	logger *slog.Logger
}

// New constructs a Merger around tool.
func New(tool Tool, logger *slog.Logger) *Merger {
	return &Merger{tool: tool, logger: logging.NewComponentLogger(logger, "merger")}
}

// Probe returns the duration of path, or an unknown duration when the probe
// fails for any reason.
func (m *Merger) Probe(ctx context.Context, path string) media.Duration {
	d, err := m.tool.ProbeDuration(ctx, path)
	if err != nil {
		logging.WithContext(ctx, m.logger).Debug("duration probe failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return media.UnknownDuration()
	}
	return d
}

// TargetDuration returns the output length for an audio track of the given
// duration.
func TargetDuration(audio media.Duration) media.Duration {
	return audio.Add(PadSeconds)
}

// Run merges videoPath and audioPath into outputPath. Missing inputs fail
// with ErrNotFound before any process is started.
func (m *Merger) Run(ctx context.Context, videoPath, audioPath, outputPath string) (Outcome, error) {
	if m == nil || m.tool == nil {
		return Outcome{}, services.Wrap(services.ErrUnexpected, "merging", "init", "merger not initialized", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "merging", "", "output path is required", nil)
	}
	for _, input := range []struct{ role, path string }{{"video", videoPath}, {"audio", audioPath}} {
		if err := requireFile(input.role, input.path); err != nil {
			return Outcome{}, err
		}
	}

	logger := logging.WithContext(ctx, m.logger)
	audio := m.Probe(ctx, audioPath)
	target := TargetDuration(audio)
	if !target.Known {
		logging.WarnWithContext(logger, "audio duration unavailable; falling back to shortest stream", "merge_duration_fallback",
			logging.String("audio_path", audioPath),
			logging.String(logging.FieldErrorHint, "verify the audio file is readable by ffprobe"),
			logging.String(logging.FieldImpact, "output length follows the shorter input"),
		)
	}

	logger.Debug("running remux",
		logging.String("video_path", videoPath),
		logging.String("audio_path", audioPath),
		logging.String("output_path", outputPath),
		logging.String("target", target.String()),
	)

	req := media.RemuxRequest{VideoPath: videoPath, AudioPath: audioPath, OutputPath: outputPath, Duration: target}
	if err := m.tool.Remux(ctx, req); err != nil {
		_ = os.Remove(outputPath)
		return Outcome{}, services.Wrap(services.ErrMergeToolFailed, "merging", "remux", "", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return Outcome{}, services.Wrap(services.ErrMergeToolFailed, "merging", "verify output", "tool did not produce output file", err)
	}

	logger.Info("merge complete",
		logging.String(logging.FieldEventType, "merge_completed"),
		logging.String("output_path", outputPath),
		logging.String("audio_duration", audio.String()),
		logging.String("target", target.String()),
	)
	return Outcome{OutputPath: outputPath, AudioDuration: audio, Target: target}, nil
}

// Merge is Run reduced to the output path.
func (m *Merger) Merge(ctx context.Context, videoPath, audioPath, outputPath string) (string, error) {
	outcome, err := m.Run(ctx, videoPath, audioPath, outputPath)
	if err != nil {
		return "", err
	}
	return outcome.OutputPath, nil
}

func requireFile(role, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "merging", "", role+" path is required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "merging", "stat", fmt.Sprintf("%s file not found: %s", role, path), err)
		}
		return services.Wrap(services.ErrUnexpected, "merging", "stat", role+" file", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrNotFound, "merging", "stat", fmt.Sprintf("%s file not found: %s is a directory", role, path), nil)
	}
	return nil
}
