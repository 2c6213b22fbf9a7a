package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

func newLocateCommand(ctx *commandContext) *cobra.Command {
	var separator, within string
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "locate --within <recording> --separator <clip>",
		Short: "Find the best match of a separator clip in a short recording",
		Long: `locate correlates the separator against the whole recording and reports
where it matches best. The full recording is decoded into memory, so use it
on excerpts to check a separator clip before a long split.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			extra := []chaptersplit.Option{}
			if cmd.Flags().Changed("window") {
				extra = append(extra, chaptersplit.WithSeparatorWindow(window))
			}
			svc, err := ctx.newService(cfg, extra...)
			if err != nil {
				return err
			}

			m, err := svc.Locate(cmd.Context(), within, separator)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Offset:     %.2fs (%s)\n", m.Offset, utils.FormatLength(m.Offset))
			fmt.Fprintf(out, "Score:      %.3f\n", m.Score)
			fmt.Fprintf(out, "Prominence: %.1f\n", m.Prominence)
			if m.Score < cfg.Split.MinScore {
				fmt.Fprintf(out, "⚠️  Score is below %.2f; the separator may not occur in this recording\n", cfg.Split.MinScore)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&separator, "separator", "", "Separator clip to look for")
	cmd.Flags().StringVar(&within, "within", "", "Recording to search")
	cmd.Flags().DurationVar(&window, "window", 10*time.Second, "Leading part of the separator used for matching")
	_ = cmd.MarkFlagRequired("separator")
	_ = cmd.MarkFlagRequired("within")

	return cmd
}
