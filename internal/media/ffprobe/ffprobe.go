package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"avmerge/internal/media"
	"avmerge/internal/services"
)

const defaultBinary = "ffprobe"

// Prober runs ffprobe queries.
type Prober struct {
	binary string
	run    media.CommandRunner
}

// New constructs a Prober for the given binary; empty means "ffprobe" on PATH.
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = defaultBinary
	}
	return &Prober{binary: binary, run: media.RunCommand}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (p *Prober) WithCommandRunner(r media.CommandRunner) {
	if p != nil && r != nil {
		p.run = r
	}
}

// Binary reports the configured executable.
func (p *Prober) Binary() string {
	return p.binary
}

// DurationArgs returns the argument list for the plain-text duration query.
func DurationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration reports the container duration of path. A non-zero exit returns a
// *services.ToolError marked ErrProbeFailed; unparsable output wraps the same
// marker. Exactly one process is started per call.
func (p *Prober) Duration(ctx context.Context, path string) (media.Duration, error) {
	if strings.TrimSpace(path) == "" {
		return media.Duration{}, services.Wrap(services.ErrValidation, "", "probe duration", "empty path", nil)
	}
	stdout, stderr, err := p.run(ctx, p.binary, DurationArgs(path)...)
	if err != nil {
		return media.Duration{}, &services.ToolError{
			Tool:     p.binary,
			ExitCode: media.ExitCode(err),
			Stderr:   string(stderr),
			Marker:   services.ErrProbeFailed,
			Err:      err,
		}
	}
	// Some containers print one value per line; the first is the format entry.
	line := strings.TrimSpace(string(stdout))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	d, err := media.ParseSeconds(line)
	if err != nil {
		return media.Duration{}, services.Wrap(services.ErrProbeFailed, "", "probe duration", path, err)
	}
	return d, nil
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	stdout, stderr, err := p.run(ctx, p.binary, args...)
	if err != nil {
		return Result{}, &services.ToolError{
			Tool:     p.binary,
			ExitCode: media.ExitCode(err),
			Stderr:   string(stderr),
			Marker:   services.ErrProbeFailed,
			Err:      err,
		}
	}

	var result Result
	if err := json.Unmarshal(stdout, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
