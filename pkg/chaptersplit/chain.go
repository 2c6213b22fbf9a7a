package chaptersplit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/correlate"
)

var ErrInvalidParams = errors.New("invalid chapter parameters")

// minFinalChapter is the shortest tail, in seconds, still worth a file.
// Shorter tails are appended to the chapter before them.
const minFinalChapter = 0.01

// ChainParams bound where each separator may appear.
//
// After a chapter starts at s, its separator is expected in
// [s + L - V, s + L + V]. Only that band, widened by the reference clip
// length, is ever decoded and correlated.
type ChainParams struct {
	ChapterLength   time.Duration // L
	Variability     time.Duration // V
	SeparatorWindow time.Duration // leading part of the separator used as reference
	SkipSeparator   bool          // start the next chapter after the separator instead of on it
	MinScore        float64       // matches scoring below this are flagged
}

func (p ChainParams) Validate() error {
	if p.ChapterLength <= 0 {
		return fmt.Errorf("%w: chapter length must be positive, got %v", ErrInvalidParams, p.ChapterLength)
	}
	if p.Variability < 0 {
		return fmt.Errorf("%w: variability must not be negative, got %v", ErrInvalidParams, p.Variability)
	}
	if p.Variability >= p.ChapterLength {
		return fmt.Errorf("%w: variability %v must be shorter than chapter length %v",
			ErrInvalidParams, p.Variability, p.ChapterLength)
	}
	if p.SeparatorWindow < 0 {
		return fmt.Errorf("%w: separator window must not be negative, got %v", ErrInvalidParams, p.SeparatorWindow)
	}
	return nil
}

// SearchOffset is how far past a chapter start the search band begins.
func (p ChainParams) SearchOffset() float64 {
	return (p.ChapterLength - p.Variability).Seconds()
}

// SearchWindow is the length of audio decoded per chapter.
func (p ChainParams) SearchWindow(referenceLength float64) float64 {
	return 2*p.Variability.Seconds() + referenceLength
}

// MaxChapter is the longest a chapter may be; anything left over that is
// no longer than this is the final chapter.
func (p ChainParams) MaxChapter() float64 {
	return (p.ChapterLength + p.Variability).Seconds()
}

// locateFunc finds the separator inside r. The match offset is relative to r.Start.
type locateFunc func(ctx context.Context, r audio.Range) (correlate.Match, error)

type chainer struct {
	params          ChainParams
	duration        float64
	referenceLength float64
	separatorLength float64
	locate          locateFunc
	log             Logger
	onChapter       func(Chapter)
}

// run walks the recording from the start, one separator at a time.
func (c *chainer) run(ctx context.Context) ([]Chapter, error) {
	if c.duration <= 0 {
		return nil, fmt.Errorf("%w: recording duration must be positive, got %.2f", ErrInvalidParams, c.duration)
	}

	offset := c.params.SearchOffset()
	window := c.params.SearchWindow(c.referenceLength)
	maxChapter := c.params.MaxChapter()

	var chapters []Chapter
	start := 0.0

	for n := 1; c.duration-start > maxChapter; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := audio.Range{Start: start + offset, Length: window}
		c.log.Debugf("Chapter %d: searching %.2fs-%.2fs", n, r.Start, r.Start+r.Length)

		m, err := c.locate(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: locating separator in %.2fs-%.2fs: %w",
				n, r.Start, r.Start+r.Length, err)
		}

		ch := Chapter{
			Number: n,
			Start:  start,
			Length: offset + m.Offset,
			Match:  &m,
		}
		if m.Score < c.params.MinScore {
			ch.LowConfidence = true
			c.log.Warnf("Chapter %d: weak separator match at %.2fs (score %.3f < %.3f)",
				n, ch.End(), m.Score, c.params.MinScore)
		}

		chapters = append(chapters, ch)
		c.emit(ch)

		start = ch.End()
		if c.params.SkipSeparator {
			start += c.separatorLength
		}
	}

	rest := c.duration - start
	switch {
	case rest >= minFinalChapter || len(chapters) == 0:
		last := Chapter{
			Number: len(chapters) + 1,
			Start:  start,
			Length: rest,
		}
		chapters = append(chapters, last)
		c.emit(last)
	default:
		// too short for its own file; the previous chapter runs to the end
		chapters[len(chapters)-1].Length = c.duration - chapters[len(chapters)-1].Start
	}

	return chapters, nil
}

func (c *chainer) emit(ch Chapter) {
	if c.onChapter != nil {
		c.onChapter(ch)
	}
}
