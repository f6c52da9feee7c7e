package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"avmerge/internal/logging"
	"avmerge/internal/preflight"
	"avmerge/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP merge service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

func runServe(parent context.Context, ctx *commandContext, bind string) error {
	if parent == nil {
		parent = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if bind != "" {
		cfg.Server.Bind = bind
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.RunAll(signalCtx, cfg) {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "verify directory paths and permissions in config"),
		)
	}
	for _, status := range preflight.CheckSystemDeps(signalCtx, cfg) {
		if status.Available {
			continue
		}
		logging.WarnWithContext(logger, "dependency unavailable", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set media.ffmpeg_binary / media.ffprobe_binary"),
			logging.String(logging.FieldImpact, "merge requests will fail"),
		)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(signalCtx); err != nil {
		return err
	}

	if interval := cfg.SweepInterval(); interval > 0 {
		go srv.Sweeper().Run(signalCtx, interval)
		logger.Info("periodic sweep enabled",
			logging.Duration("interval", interval),
			logging.Duration("max_age", cfg.RetentionMaxAge()),
		)
	}

	<-signalCtx.Done()
	srv.Stop()
	logger.Info("avmerge shutting down")
	return nil
}
