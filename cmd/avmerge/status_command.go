package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"avmerge/internal/api"
	"avmerge/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check media tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status := api.BuildStatus(cfg,
				preflight.CheckSystemDeps(cmd.Context(), cfg),
				preflight.RunAll(cmd.Context(), cfg),
			)
			if asJSON {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status)
			if !status.Ready {
				return fmt.Errorf("avmerge is not ready")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func renderStatus(out io.Writer, status api.StatusResponse) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
	for _, dep := range status.Dependencies {
		kind, detail := statusOK, dep.Version
		if !dep.Available {
			kind, detail = statusError, dep.Detail
			if dep.Optional {
				kind = statusWarn
			}
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Directories", colorize))
	for _, check := range status.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, tableSpec{
		title:   "Service",
		headers: []string{"Setting", "Value"},
		rows: [][]string{
			{"Output directory", status.OutputDir},
			{"Retention (minutes)", strconv.Itoa(status.RetentionMinutes)},
			{"Sweep interval (minutes)", sweepLabel(status.SweepIntervalMinutes)},
			{"Authentication", yesNo(status.AuthenticationEnabled)},
			{"Ready", yesNo(status.Ready)},
		},
		colorize: colorize,
	}.render())
}

func sweepLabel(minutes int) string {
	if minutes <= 0 {
		return "disabled"
	}
	return strconv.Itoa(minutes)
}
