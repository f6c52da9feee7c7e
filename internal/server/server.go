package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"avmerge/internal/config"
	"avmerge/internal/job"
	"avmerge/internal/logging"
	"avmerge/internal/media/ffmpeg"
	"avmerge/internal/merge"
	"avmerge/internal/metrics"
	"avmerge/internal/resolve"
	"avmerge/internal/retention"
)

//go:embed static/index.html
var indexHTML []byte

// Server owns the HTTP listener and the pipeline components behind it.
type Server struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *job.Orchestrator
	sweeper      *retention.Sweeper
	metrics      *metrics.Recorder
	httpClient   *http.Client
	handler      http.Handler

	listener net.Listener
	server   *http.Server
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	tool       merge.Tool
	recorder   *metrics.Recorder
	httpClient *http.Client
}

// WithTool replaces the ffmpeg adapter, mainly for tests.
func WithTool(tool merge.Tool) Option {
	return func(o *options) { o.tool = tool }
}

// WithMetrics shares a recorder instead of creating one.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithHTTPClient overrides the client used to fetch remote inputs.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New wires the pipeline for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tool == nil {
		o.tool = ffmpeg.New(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)
	}
	if o.recorder == nil {
		o.recorder = metrics.New()
	}
	if o.httpClient == nil {
		o.httpClient = resolve.NewHTTPClient(cfg.DownloadTimeout())
	}

	merger := merge.New(o.tool, logger)
	s := &Server{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "http"),
		orchestrator: job.New(cfg.Paths.UploadDir, cfg.Paths.OutputDir, merger, logger, job.WithObserver(o.recorder)),
		sweeper:      retention.New(cfg.Paths.OutputDir, cfg.RetentionMaxAge(), logger, retention.WithObserver(o.recorder)),
		metrics:      o.recorder,
		httpClient:   o.httpClient,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sweeper exposes the retention sweeper for periodic runs.
func (s *Server) Sweeper() *retention.Sweeper {
	return s.sweeper
}

// Start listens on the configured bind address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener
	// No write timeout: a merge holds the response until ffmpeg exits.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Server.IdleTimeoutSeconds) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("http server listening",
		logging.String(logging.FieldEventType, "server_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
