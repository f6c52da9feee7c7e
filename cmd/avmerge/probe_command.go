package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"avmerge/internal/media/ffprobe"
)

type probeReport struct {
	Path     string           `json:"path"`
	Duration string           `json:"duration"`
	Streams  []ffprobe.Stream `json:"streams,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var showStreams bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Report media durations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prober := ffprobe.New(cfg.Media.FFprobeBinary)

			reports := make([]probeReport, 0, len(args))
			for _, path := range args {
				report := probeReport{Path: path}
				duration, err := prober.Duration(cmd.Context(), path)
				if err != nil {
					report.Error = err.Error()
				}
				report.Duration = duration.String()
				if showStreams && err == nil {
					result, inspectErr := prober.Inspect(cmd.Context(), path)
					if inspectErr != nil {
						report.Error = inspectErr.Error()
					} else {
						report.Streams = result.Streams
					}
				}
				reports = append(reports, report)
			}

			if asJSON {
				return writeJSON(cmd, reports)
			}
			return renderProbeReports(cmd, reports, showStreams)
		},
	}
	cmd.Flags().BoolVar(&showStreams, "streams", false, "Include per-stream details")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func renderProbeReports(cmd *cobra.Command, reports []probeReport, showStreams bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{r.Path, r.Duration, r.Error})
	}
	fmt.Fprintln(out, tableSpec{
		headers:  []string{"File", "Duration", "Error"},
		rows:     rows,
		colorize: colorize,
	}.render())

	if !showStreams {
		return nil
	}
	for _, r := range reports {
		if len(r.Streams) == 0 {
			continue
		}
		streamRows := make([][]string, 0, len(r.Streams))
		for _, s := range r.Streams {
			streamRows = append(streamRows, []string{
				strconv.Itoa(s.Index),
				s.CodecType,
				s.CodecName,
				streamShape(s),
				s.Duration,
			})
		}
		fmt.Fprintln(out, tableSpec{
			title:        r.Path,
			headers:      []string{"#", "Type", "Codec", "Shape", "Duration"},
			rows:         streamRows,
			rightAligned: []int{0},
			colorize:     colorize,
		}.render())
	}
	return nil
}

func streamShape(s ffprobe.Stream) string {
	switch s.CodecType {
	case "video":
		if s.Width > 0 && s.Height > 0 {
			return fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
	case "audio":
		if s.Channels > 0 && s.SampleRate != "" {
			return fmt.Sprintf("%dch @ %s Hz", s.Channels, s.SampleRate)
		}
		if s.Channels > 0 {
			return fmt.Sprintf("%dch", s.Channels)
		}
	}
	return ""
}
