package job

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"avmerge/internal/logging"
	"avmerge/internal/merge"
	"avmerge/internal/services"
)

// SuccessMessage is reported for every completed merge.
const SuccessMessage = "Files merged successfully"

// Observer receives pipeline progress, typically for metrics.
type Observer interface {
	StageStarted(stage Stage)
	JobFinished(kind services.Kind, elapsed time.Duration)
}

// Orchestrator runs merge requests against fixed upload and output directories.
type Orchestrator struct {
	uploadDir string
	outputDir string
	merger    *merge.Merger
	logger    *slog.Logger
	observer  Observer
	newID     func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers an observer for stage and completion events.
func WithObserver(o Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

// WithIDGenerator replaces uuid-based job identifiers.
func WithIDGenerator(fn func() string) Option {
	return func(orc *Orchestrator) {
		if fn != nil {
			orc.newID = fn
		}
	}
}

// New constructs an Orchestrator.
func New(uploadDir, outputDir string, merger *merge.Merger, logger *slog.Logger, opts ...Option) *Orchestrator {
	orc := &Orchestrator{
		uploadDir: uploadDir,
		outputDir: outputDir,
		merger:    merger,
		logger:    logging.NewComponentLogger(logger, "orchestrator"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(orc)
	}
	return orc
}

// Run executes req to completion. Cancellation of ctx is ignored once the job
// starts; values such as the request ID are kept.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	ctx = context.WithoutCancel(ctx)

	format, ok := NormalizeFormat(req.Format)
	if !ok {
		err := services.Wrap(services.ErrValidation, "", "", "unsupported output_format "+format+" (use mp4, mov, or mkv)", nil)
		o.finish(services.KindOf(err), started)
		return Result{}, err
	}
	if req.Video == nil || req.Audio == nil {
		err := services.Wrap(services.ErrValidation, "", "", "both video and audio inputs are required", nil)
		o.finish(services.KindOf(err), started)
		return Result{}, err
	}

	j := &MergeJob{ID: o.newID()}
	ctx = services.WithJobID(ctx, j.ID)
	j.OutputPath = filepath.Join(o.outputDir, OutputName(j.ID, format))

	result, err := o.execute(ctx, j, req)
	if err != nil {
		o.fail(ctx, j, err)
		o.finish(services.KindOf(err), started)
		return Result{}, err
	}
	o.finish("", started)
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, j *MergeJob, req Request) (Result, error) {
	var err error

	ctx = o.enter(ctx, j, StageResolvingInputs)
	if j.VideoPath, err = req.Video.Materialize(ctx, o.uploadDir, j.ID); err != nil {
		return Result{}, err
	}
	if j.AudioPath, err = req.Audio.Materialize(ctx, o.uploadDir, j.ID); err != nil {
		return Result{}, err
	}

	ctx = o.enter(ctx, j, StageProbingInputs)
	j.Video = o.merger.Probe(ctx, j.VideoPath)
	j.Audio = o.merger.Probe(ctx, j.AudioPath)

	ctx = o.enter(ctx, j, StageMerging)
	outcome, err := o.merger.Run(ctx, j.VideoPath, j.AudioPath, j.OutputPath)
	if err != nil {
		return Result{}, err
	}
	j.Target = outcome.Target

	ctx = o.enter(ctx, j, StageProbingOutput)
	output := o.merger.Probe(ctx, j.OutputPath)

	ctx = o.enter(ctx, j, StageCleaningUp)
	o.removeAll(ctx, j.VideoPath, j.AudioPath)

	o.enter(ctx, j, StageDone)
	logging.WithContext(ctx, o.logger).Info("merge job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output_name", filepath.Base(j.OutputPath)),
		logging.String("video_duration", j.Video.String()),
		logging.String("audio_duration", j.Audio.String()),
		logging.String("output_duration", output.String()),
	)

	return Result{
		JobID:      j.ID,
		Message:    SuccessMessage,
		Video:      j.Video,
		Audio:      j.Audio,
		Output:     output,
		OutputPath: j.OutputPath,
		OutputName: filepath.Base(j.OutputPath),
	}, nil
}

func (o *Orchestrator) enter(ctx context.Context, j *MergeJob, stage Stage) context.Context {
	j.Stage = stage
	ctx = services.WithStage(ctx, string(stage))
	if o.observer != nil {
		o.observer.StageStarted(stage)
	}
	logging.WithContext(ctx, o.logger).Debug("stage started")
	return ctx
}

func (o *Orchestrator) fail(ctx context.Context, j *MergeJob, cause error) {
	failedAt := j.Stage
	j.Stage = StageFailed
	ctx = services.WithStage(ctx, string(StageFailed))
	o.removeAll(ctx, j.VideoPath, j.AudioPath, j.OutputPath)
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "merge job failed", "job_failed",
		logging.String("failed_stage", string(failedAt)),
		logging.String("error_kind", string(services.KindOf(cause))),
		logging.Error(cause),
	)
}

// removeAll deletes whichever of paths exist. Secondary errors are logged and
// swallowed.
func (o *Orchestrator) removeAll(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger), "failed to remove job file", "job_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "temporary file left on disk until removed manually"),
			)
		}
	}
}

func (o *Orchestrator) finish(kind services.Kind, started time.Time) {
	if o.observer != nil {
		o.observer.JobFinished(kind, time.Since(started))
	}
}
