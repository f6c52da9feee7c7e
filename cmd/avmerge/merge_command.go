package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"avmerge/internal/media/ffmpeg"
	"avmerge/internal/merge"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <video> <audio> [output]",
		Short: "Merge a local video and audio file",
		Long: "Copy the video stream, re-encode the audio to AAC, and cut the result to the\n" +
			"audio duration plus 0.5 seconds. Without an output path the result is written\n" +
			"to <output_dir>/merged_<video name>.mp4.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			videoPath, audioPath := args[0], args[1]
			outputPath := defaultMergeOutput(cfg.Paths.OutputDir, videoPath)
			if len(args) == 3 {
				outputPath = args[2]
			}

			tool := ffmpeg.New(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)
			merger := merge.New(tool, ctx.toolLogger())
			out := cmd.OutOrStdout()

			video := merger.Probe(cmd.Context(), videoPath)
			audio := merger.Probe(cmd.Context(), audioPath)
			if video.Known && audio.Known {
				fmt.Fprintf(out, "Video duration: %s\n", video)
				fmt.Fprintf(out, "Audio duration: %s\n", audio)
				fmt.Fprintf(out, "Output will be: %s (audio + %.1fs)\n", merge.TargetDuration(audio), merge.PadSeconds)
			}

			written, err := merger.Merge(cmd.Context(), videoPath, audioPath, outputPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Successfully merged video and audio to: %s\n", written)

			if output := merger.Probe(cmd.Context(), written); output.Known {
				fmt.Fprintf(out, "Output duration: %s\n", output)
			}
			return nil
		},
	}
}

func defaultMergeOutput(outputDir, videoPath string) string {
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, "merged_"+stem+".mp4")
}
