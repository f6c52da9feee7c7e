package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"avmerge/internal/api"
	"avmerge/internal/assets"
	"avmerge/internal/retention"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAgeMinutes int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete merged outputs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := cfg.RetentionMaxAge()
			if cmd.Flags().Changed("max-age") {
				if maxAgeMinutes < 0 {
					return fmt.Errorf("--max-age must be >= 0")
				}
				cfg.Retention.MaxAgeMinutes = maxAgeMinutes
				maxAge = cfg.RetentionMaxAge()
			}

			sweeper := retention.New(cfg.Paths.OutputDir, maxAge, ctx.toolLogger())
			report, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.CleanupResponse{DeletedFiles: len(report.Deleted), Skipped: report.Skipped})
			}

			out := cmd.OutOrStdout()
			if report.Skipped {
				fmt.Fprintln(out, "Another sweep is running; nothing deleted")
				return nil
			}
			for _, path := range report.Deleted {
				fmt.Fprintf(out, "Deleted %s\n", filepath.Base(path))
			}
			for _, failure := range report.Errors {
				fmt.Fprintf(out, "Failed to delete %s: %v\n", filepath.Base(failure.Path), failure.Error)
			}
			fmt.Fprintf(out, "Deleted %d file(s) older than %s\n", len(report.Deleted), maxAge)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxAgeMinutes, "max-age", 0, "Override retention.max_age_minutes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newTestFilesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "test-files",
		Short: "List sample media available for manual testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			listing, err := assets.List(cfg.Paths.TestFilesDir)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.TestFilesResponse{VideoFiles: listing.Video, AudioFiles: listing.Audio})
			}

			rows := make([][]string, 0, len(listing.Video)+len(listing.Audio))
			for _, name := range listing.Video {
				rows = append(rows, []string{"video", name, assets.MediaType(name)})
			}
			for _, name := range listing.Audio {
				rows = append(rows, []string{"audio", name, assets.MediaType(name)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tableSpec{
				title:    cfg.Paths.TestFilesDir,
				headers:  []string{"Kind", "File", "Media Type"},
				rows:     rows,
				colorize: shouldColorize(out),
			}.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
