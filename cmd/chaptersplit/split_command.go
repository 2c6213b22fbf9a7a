package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/ChapterSplit/internal/config"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
	"github.com/himanishpuri/ChapterSplit/pkg/logger"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

type splitOptions struct {
	separator     string
	within        string
	titles        string
	window        time.Duration
	length        time.Duration
	variability   time.Duration
	outputDir     string
	format        string
	jobs          int
	rate          int
	minScore      float64
	skipSeparator bool
	dryRun        bool
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var opts splitOptions
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "split --within <recording> --separator <clip>",
		Short: "Split a recording into chapter files",
		Example: `  chaptersplit split --within book.mp3 --separator chime.wav --titles titles.txt
  chaptersplit split --within show.flac --separator jingle.wav --chapter-length 45m --chapter-variability 3m --format mp3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applySplitFlags(cmd, cfg, opts); err != nil {
				return err
			}
			log := ctx.logger()

			titles, err := utils.ParseTitles(opts.titles)
			if err != nil {
				log.Warnf("Ignoring titles: %v", err)
				titles = nil
			}

			out := cmd.OutOrStdout()
			progress := newProgressReporter(out, logger.IsTerminal(out))

			svc, err := ctx.newService(cfg,
				chaptersplit.WithTitles(titles),
				chaptersplit.WithDryRun(opts.dryRun),
				chaptersplit.WithProgress(progress),
			)
			if err != nil {
				progress.Close()
				return err
			}

			res, err := svc.Split(cmd.Context(), opts.within, opts.separator)
			progress.Close()
			if err != nil {
				if errors.Is(err, chaptersplit.ErrOutputLocked) {
					return fmt.Errorf("%w (is another split writing to %s?)", err, cfg.Split.OutputDir)
				}
				return err
			}

			fmt.Fprintln(out, renderResult(res))
			if opts.dryRun {
				fmt.Fprintf(out, "Dry run: %d chapters planned, nothing written\n", len(res.Plan.Chapters))
			} else {
				fmt.Fprintf(out, "✅ Wrote %d chapters to %s\n", len(res.Exported), cfg.Split.OutputDir)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.separator, "separator", "", "Separator clip marking chapter boundaries")
	flags.StringVar(&opts.within, "within", "", "Recording to split")
	flags.StringVar(&opts.titles, "titles", "", "Text file with one chapter title per line")
	flags.DurationVar(&opts.window, "window", defaults.Split.SeparatorWindow.Duration, "Leading part of the separator used for matching")
	flags.DurationVar(&opts.length, "chapter-length", defaults.Split.ChapterLength.Duration, "Expected chapter length")
	flags.DurationVar(&opts.variability, "chapter-variability", defaults.Split.ChapterVariability.Duration, "How far a chapter may deviate from the expected length")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", defaults.Split.OutputDir, "Directory for chapter files")
	flags.StringVar(&opts.format, "format", defaults.Split.Format, "Output format extension (wav, mp3, flac, ...)")
	flags.IntVarP(&opts.jobs, "jobs", "j", defaults.Split.Jobs, "Chapters exported in parallel")
	flags.IntVar(&opts.rate, "rate", defaults.Analysis.SampleRate, "Sample rate used for matching")
	flags.Float64Var(&opts.minScore, "min-score", defaults.Split.MinScore, "Warn about separator matches scoring below this")
	flags.BoolVar(&opts.skipSeparator, "skip-separator", false, "Start chapters after the separator instead of on it")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Only print the chapter plan")

	_ = cmd.MarkFlagRequired("separator")
	_ = cmd.MarkFlagRequired("within")

	return cmd
}

// applySplitFlags copies explicitly set flags over the loaded configuration
// and revalidates it.
func applySplitFlags(cmd *cobra.Command, cfg *config.Config, opts splitOptions) error {
	flags := cmd.Flags()
	if flags.Changed("window") {
		cfg.Split.SeparatorWindow.Duration = opts.window
	}
	if flags.Changed("chapter-length") {
		cfg.Split.ChapterLength.Duration = opts.length
	}
	if flags.Changed("chapter-variability") {
		cfg.Split.ChapterVariability.Duration = opts.variability
	}
	if flags.Changed("output-dir") {
		dir, err := config.ExpandPath(opts.outputDir)
		if err != nil {
			return fmt.Errorf("--output-dir: %w", err)
		}
		cfg.Split.OutputDir = dir
	}
	if flags.Changed("format") {
		cfg.Split.Format = opts.format
	}
	if flags.Changed("jobs") {
		cfg.Split.Jobs = opts.jobs
	}
	if flags.Changed("rate") {
		cfg.Analysis.SampleRate = opts.rate
	}
	if flags.Changed("min-score") {
		cfg.Split.MinScore = opts.minScore
	}
	if flags.Changed("skip-separator") {
		cfg.Split.SkipSeparator = opts.skipSeparator
	}
	return cfg.Validate()
}
