package main

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

// progressReporter shows planning and export progress. On a terminal it
// draws mpb bars; otherwise it prints one line per chapter.
type progressReporter struct {
	out         io.Writer
	interactive bool

	mu        sync.Mutex
	p         *mpb.Progress
	planBar   *mpb.Bar
	exportBar *mpb.Bar
	planned   int
}

func newProgressReporter(out io.Writer, interactive bool) *progressReporter {
	r := &progressReporter{out: out, interactive: interactive}
	if interactive {
		r.p = mpb.New(mpb.WithOutput(out), mpb.WithWidth(64))
	}
	return r
}

// ChapterPlanned advances the planning bar to the end of ch.
func (r *progressReporter) ChapterPlanned(ch chaptersplit.Chapter, duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planned++

	if !r.interactive {
		fmt.Fprintf(r.out, "Found chapter %d at %s (length %s)\n",
			ch.Number, utils.FormatLength(ch.Start), utils.FormatLength(ch.Length))
		return
	}

	if r.planBar == nil {
		r.planBar = r.p.AddBar(centis(duration),
			mpb.PrependDecorators(
				decor.Name("Scanning: "),
				decor.Elapsed(decor.ET_STYLE_GO),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
	}
	r.planBar.SetCurrent(centis(ch.End()))
	// the final chapter has no separator match
	if ch.Match == nil {
		r.planBar.SetTotal(-1, true)
	}
}

// ChapterExported counts a written chapter file.
func (r *progressReporter) ChapterExported(ch chaptersplit.ExportedChapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.interactive {
		fmt.Fprintf(r.out, "Extracted chapter %d (length %s)\n", ch.Number, utils.FormatLength(ch.Length))
		return
	}

	if r.exportBar == nil {
		r.exportBar = r.p.AddBar(int64(r.planned),
			mpb.PrependDecorators(
				decor.Name("Exporting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
			),
		)
	}
	r.exportBar.Increment()
}

// Close stops any unfinished bars and waits for the last render.
func (r *progressReporter) Close() {
	if !r.interactive {
		return
	}
	r.mu.Lock()
	for _, bar := range []*mpb.Bar{r.planBar, r.exportBar} {
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
	}
	r.mu.Unlock()
	r.p.Wait()
}

func centis(sec float64) int64 {
	return int64(math.Round(sec * 100))
}
