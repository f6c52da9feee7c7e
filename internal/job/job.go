package job

import (
	"fmt"
	"strings"

	"avmerge/internal/media"
	"avmerge/internal/resolve"
)

// Stage names a step of the merge pipeline.
type Stage string

const (
	StageResolvingInputs Stage = "resolving_inputs"
	StageProbingInputs   Stage = "probing_inputs"
	StageMerging         Stage = "merging"
	StageProbingOutput   Stage = "probing_output"
	StageCleaningUp      Stage = "cleaning_up"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// Stages lists the success path in order.
var Stages = []Stage{
	StageResolvingInputs,
	StageProbingInputs,
	StageMerging,
	StageProbingOutput,
	StageCleaningUp,
	StageDone,
}

// DefaultFormat is the output container when a request names none.
const DefaultFormat = "mp4"

var supportedFormats = map[string]struct{}{
	"mp4": {},
	"mov": {},
	"mkv": {},
}

// NormalizeFormat lowercases format and applies the default. ok is false for
// containers the merge command is not expected to produce.
func NormalizeFormat(format string) (string, bool) {
	format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if format == "" {
		return DefaultFormat, true
	}
	_, ok := supportedFormats[format]
	return format, ok
}

// OutputName returns the deliverable file name for a job.
func OutputName(id, format string) string {
	return fmt.Sprintf("merged_%s.%s", id, format)
}

// Request is one merge to perform.
type Request struct {
	Video resolve.Source
	Audio resolve.Source
	// Format is the output container extension; empty means DefaultFormat.
	Format string
}

// MergeJob is the state of a single request while it runs.
type MergeJob struct {
	ID         string
	Stage      Stage
	VideoPath  string
	AudioPath  string
	OutputPath string
	Video      media.Duration
	Audio      media.Duration
	Target     media.Duration
}

// Result is the outcome of a successful merge.
type Result struct {
	JobID      string
	Message    string
	Video      media.Duration
	Audio      media.Duration
	Output     media.Duration
	OutputPath string
	OutputName string
}
