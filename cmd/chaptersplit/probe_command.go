package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Show duration, stream format and tags of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			media := audio.New(audio.Config{
				FFmpegPath:  cfg.Tools.FFmpeg,
				FFprobePath: cfg.Tools.FFprobe,
				TempDir:     cfg.Tools.TempDir,
				Timeout:     cfg.Tools.CommandTimeout.Duration,
			})
			meta, err := media.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderMetadata(meta))
			return nil
		},
	}
}

func renderMetadata(meta *audio.Metadata) string {
	rows := [][]string{
		{"file", meta.Filename},
		{"format", meta.Format},
		{"duration", fmt.Sprintf("%s (%.2fs)", utils.FormatLength(meta.DurationSec), meta.DurationSec)},
		{"sample rate", strconv.Itoa(meta.SampleRate) + " Hz"},
		{"channels", strconv.Itoa(meta.Channels)},
	}
	if meta.BitDepth > 0 {
		rows = append(rows, []string{"bit depth", strconv.Itoa(meta.BitDepth)})
	}

	keys := make([]string, 0, len(meta.Tags))
	for k := range meta.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{"tag:" + k, meta.Tags[k]})
	}

	return renderTable([]column{{header: "Field"}, {header: "Value"}}, rows)
}
