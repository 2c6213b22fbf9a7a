package chaptersplit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/correlate"
	"github.com/himanishpuri/ChapterSplit/pkg/logger"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

var ErrOutputLocked = errors.New("output directory is locked by another chaptersplit run")

const lockFileName = ".chaptersplit.lock"

// splitService is the default implementation of the Service interface.
type splitService struct {
	media  Media
	log    Logger
	config *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if err := cfg.chainParams().Validate(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidParams, cfg.SampleRate)
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	cfg.Format = strings.TrimPrefix(strings.TrimSpace(cfg.Format), ".")
	if cfg.Format == "" {
		cfg.Format = "wav"
	}

	media := cfg.Media
	if media == nil {
		media = audio.New(audio.Config{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			TempDir:     cfg.TempDir,
			Timeout:     cfg.CommandTimeout,
		})
	}

	return &splitService{
		media:  media,
		log:    cfg.Logger,
		config: cfg,
	}, nil
}

// Plan finds every chapter boundary in source without writing any output.
func (s *splitService) Plan(ctx context.Context, source, separator string) (*Plan, error) {
	rate := s.config.SampleRate
	s.log.Infof("Planning chapters of %s using separator %s", source, separator)

	// 1. Probe the recording
	meta, err := s.media.Probe(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", source, err)
	}
	if meta.DurationSec <= 0 {
		return nil, fmt.Errorf("could not determine duration of %s", source)
	}

	// 2. Decode the separator once and cut the reference from it
	sep, err := s.media.Decode(ctx, separator, audio.Range{}, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode separator: %w", err)
	}
	if len(sep) == 0 {
		return nil, fmt.Errorf("%w: separator %s has no audio", ErrInvalidParams, separator)
	}
	ref := correlate.TrimReference(sep, rate, s.config.SeparatorWindow)

	plan := &Plan{
		Source:          source,
		Separator:       separator,
		Duration:        meta.DurationSec,
		SeparatorLength: float64(len(sep)) / float64(rate),
		ReferenceLength: float64(len(ref)) / float64(rate),
		Metadata:        meta,
	}
	s.log.Infof("Recording is %.2fs long; reference clip is %.2fs of a %.2fs separator",
		plan.Duration, plan.ReferenceLength, plan.SeparatorLength)

	// 3. Walk the recording
	c := &chainer{
		params:          s.config.chainParams(),
		duration:        plan.Duration,
		referenceLength: plan.ReferenceLength,
		separatorLength: plan.SeparatorLength,
		log:             s.log,
		locate: func(ctx context.Context, r audio.Range) (correlate.Match, error) {
			window, err := s.media.Decode(ctx, source, r, rate)
			if err != nil {
				return correlate.Match{}, err
			}
			// the window can run past the end of the recording
			if len(window) < len(ref) {
				window = append(window, make([]float64, len(ref)-len(window))...)
			}
			return correlate.FindOffset(window, ref, rate)
		},
		onChapter: func(ch Chapter) {
			s.name(&ch)
			if s.config.Progress != nil {
				s.config.Progress.ChapterPlanned(ch, plan.Duration)
			}
		},
	}

	chapters, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		s.name(&chapters[i])
	}
	plan.Chapters = chapters

	s.log.Infof("Planned %d chapters", len(chapters))
	return plan, nil
}

func (s *splitService) name(ch *Chapter) {
	ch.Title = utils.ChapterTitle(ch.Number, s.config.Titles)
	ch.FileName = utils.ChapterFileName(ch.Number, s.config.Titles, s.config.Format)
}

// Export writes every planned chapter into the output directory.
func (s *splitService) Export(ctx context.Context, plan *Plan) ([]ExportedChapter, error) {
	if plan == nil || len(plan.Chapters) == 0 {
		return nil, errors.New("nothing to export: empty plan")
	}

	outDir := s.config.OutputDir
	if err := utils.MakeDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lockPath := filepath.Join(outDir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, lockPath)
	}
	// The lock file is left in place so every run locks the same inode.
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warnf("Failed to release lock %s: %v", lockPath, err)
		}
	}()

	total := len(plan.Chapters)
	exported := make([]ExportedChapter, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Jobs)

	for i, ch := range plan.Chapters {
		g.Go(func() error {
			dst := filepath.Join(outDir, ch.FileName)
			req := audio.ExtractRequest{
				Source:      plan.Source,
				Destination: dst,
				Range:       audio.Range{Start: ch.Start, Length: ch.Length},
				Tags:        chapterTags(ch, total, plan.Metadata),
			}
			if err := s.media.Extract(gctx, req); err != nil {
				return fmt.Errorf("chapter %d: %w", ch.Number, err)
			}

			exported[i] = ExportedChapter{Chapter: ch, Path: dst, Size: utils.FileSize(dst)}
			s.log.Debugf("Wrote %s (%d bytes)", dst, exported[i].Size)
			if s.config.Progress != nil {
				s.config.Progress.ChapterExported(exported[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Infof("Exported %d chapters to %s", total, outDir)
	return exported, nil
}

// Split plans and, unless running dry, exports the chapters of source.
func (s *splitService) Split(ctx context.Context, source, separator string) (*Result, error) {
	plan, err := s.Plan(ctx, source, separator)
	if err != nil {
		return nil, err
	}

	res := &Result{Plan: plan}
	if s.config.DryRun {
		s.log.Infof("Dry run: skipping export of %d chapters", len(plan.Chapters))
		return res, nil
	}

	res.Exported, err = s.Export(ctx, plan)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Locate correlates the separator against the whole of source. It decodes
// the full recording, so it is meant for short files and for checking a
// separator clip before a long split.
func (s *splitService) Locate(ctx context.Context, source, separator string) (*correlate.Match, error) {
	rate := s.config.SampleRate

	within, err := s.media.Decode(ctx, source, audio.Range{}, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", source, err)
	}
	sep, err := s.media.Decode(ctx, separator, audio.Range{}, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode separator: %w", err)
	}

	ref := correlate.TrimReference(sep, rate, s.config.SeparatorWindow)
	m, err := correlate.FindOffset(within, ref, rate)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Separator found at %.2fs (score %.3f, prominence %.1f)", m.Offset, m.Score, m.Prominence)
	return &m, nil
}

func chapterTags(ch Chapter, total int, meta *audio.Metadata) map[string]string {
	return map[string]string{
		"title":        ch.Title,
		"track":        fmt.Sprintf("%d/%d", ch.Number, total),
		"album":        meta.Tag("album", "title"),
		"artist":       meta.Tag("artist"),
		"album_artist": meta.Tag("album_artist", "artist"),
		"genre":        meta.Tag("genre"),
		"date":         meta.Tag("date"),
	}
}
