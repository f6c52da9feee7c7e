// Package ffmpeg runs the remux command that combines one video stream with
// one audio stream. It is the only place the ffmpeg command line is built.
package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"avmerge/internal/media"
	"avmerge/internal/media/ffprobe"
	"avmerge/internal/services"
)

const defaultBinary = "ffmpeg"

// Adapter pairs ffmpeg for remuxing with ffprobe for duration queries.
type Adapter struct {
	ffmpeg string
	probe  *ffprobe.Prober
	run    media.CommandRunner
}

// New constructs an Adapter. Empty binary names resolve from PATH.
func New(ffmpegPath, ffprobePath string) *Adapter {
	ffmpegPath = strings.TrimSpace(ffmpegPath)
	if ffmpegPath == "" {
		ffmpegPath = defaultBinary
	}
	return &Adapter{ffmpeg: ffmpegPath, probe: ffprobe.New(ffprobePath), run: media.RunCommand}
}

// WithCommandRunner replaces the runner for both ffmpeg and ffprobe calls.
func (a *Adapter) WithCommandRunner(r media.CommandRunner) {
	if a == nil || r == nil {
		return
	}
	a.run = r
	a.probe.WithCommandRunner(r)
}

// ProbeDuration reports the container duration of path via ffprobe.
func (a *Adapter) ProbeDuration(ctx context.Context, path string) (media.Duration, error) {
	return a.probe.Duration(ctx, path)
}

// Remux runs ffmpeg once with stdout and stderr captured. A non-zero exit
// returns a *services.ToolError carrying stderr.
func (a *Adapter) Remux(ctx context.Context, req media.RemuxRequest) error {
	args, err := BuildRemuxArgs(req)
	if err != nil {
		return err
	}
	_, stderr, err := a.run(ctx, a.ffmpeg, args...)
	if err != nil {
		return &services.ToolError{
			Tool:     a.ffmpeg,
			ExitCode: media.ExitCode(err),
			Stderr:   string(stderr),
			Marker:   services.ErrMergeToolFailed,
			Err:      err,
		}
	}
	return nil
}

// BuildRemuxArgs returns the ffmpeg arguments for req: video copied, audio
// re-encoded to AAC, first video stream of input 0 and first audio stream of
// input 1. A known duration becomes -t; otherwise -shortest.
func BuildRemuxArgs(req media.RemuxRequest) ([]string, error) {
	switch {
	case strings.TrimSpace(req.VideoPath) == "":
		return nil, fmt.Errorf("remux: video path is required")
	case strings.TrimSpace(req.AudioPath) == "":
		return nil, fmt.Errorf("remux: audio path is required")
	case strings.TrimSpace(req.OutputPath) == "":
		return nil, fmt.Errorf("remux: output path is required")
	}

	args := []string{
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	if req.Duration.Known {
		args = append(args, "-t", strconv.FormatFloat(req.Duration.Seconds, 'f', -1, 64))
	} else {
		args = append(args, "-shortest")
	}
	return append(args, "-y", req.OutputPath), nil
}
