// Package retention deletes merged outputs once they age past the retention
// window. Sweeps are stateless and idempotent; concurrent sweeps serialize on
// a lock file inside the output directory.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"avmerge/internal/logging"
)

// LockFileName is created in the swept directory and never deleted by a sweep.
const LockFileName = ".sweep.lock"

// Report contains the outcome of one sweep.
type Report struct {
	Deleted []string
	Errors  []SweepError
	// Skipped is set when another sweep held the lock.
	Skipped bool
}

// SweepError pairs a file path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Observer receives sweep outcomes.
type Observer interface {
	SweepFinished(deleted int, skipped bool)
}

// Sweeper removes regular files older than maxAge from one directory.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock replaces time.Now for age calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers an observer for sweep outcomes.
func WithObserver(o Observer) Option {
	return func(s *Sweeper) { s.observer = o }
}

// New constructs a Sweeper for dir.
func New(dir string, maxAge time.Duration, logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		dir:    strings.TrimSpace(dir),
		maxAge: maxAge,
		logger: logging.NewComponentLogger(logger, "retention"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes every regular file whose modification time is older than the
// retention window. A missing directory is created and yields an empty
// report. Dotfiles and directories are left alone. When another
// sweep holds the lock the report is empty with Skipped set.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	var report Report
	if s.dir == "" {
		return report, errors.New("retention sweep: directory not configured")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return report, fmt.Errorf("retention sweep: ensure %s: %w", s.dir, err)
	}
	lock := flock.New(filepath.Join(s.dir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("retention sweep: acquire lock: %w", err)
	}
	if !locked {
		report.Skipped = true
		s.logger.Debug("sweep already running; skipping", logging.String("dir", s.dir))
		s.notify(report)
		return report, nil
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return report, fmt.Errorf("retention sweep: read %s: %w", s.dir, err)
	}

	cutoff := s.now().Add(-s.maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				report.Errors = append(report.Errors, SweepError{Path: path, Error: err})
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			report.Errors = append(report.Errors, SweepError{Path: path, Error: err})
			logging.WarnWithContext(s.logger, "failed to remove expired output", "retention_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		report.Deleted = append(report.Deleted, path)
		s.logger.Info("removed expired output",
			logging.String("path", path),
			logging.Duration("age", s.now().Sub(info.ModTime())),
			logging.String(logging.FieldEventType, "retention_cleanup"),
		)
	}

	s.notify(report)
	return report, nil
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logging.WarnWithContext(s.logger, "periodic sweep failed", "retention_sweep_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "expired outputs kept until the next sweep"),
				)
			}
		}
	}
}

func (s *Sweeper) notify(report Report) {
	if s.observer != nil {
		s.observer.SweepFinished(len(report.Deleted), report.Skipped)
	}
}
