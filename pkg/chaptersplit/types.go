package chaptersplit

import (
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/correlate"
)

// Chapter is one planned cut of the source recording. Times are in seconds.
type Chapter struct {
	Number        int
	Start         float64
	Length        float64
	Match         *correlate.Match // separator that ends this chapter; nil for the last one
	LowConfidence bool
	Title         string
	FileName      string
}

func (c Chapter) End() float64 {
	return c.Start + c.Length
}

// Plan holds every chapter boundary of a recording before anything is written.
type Plan struct {
	Source          string
	Separator       string
	Duration        float64
	SeparatorLength float64 // full separator clip, seconds
	ReferenceLength float64 // portion of the separator used for correlation, seconds
	Metadata        *audio.Metadata
	Chapters        []Chapter
}

// ExportedChapter is a chapter that has been written to disk.
type ExportedChapter struct {
	Chapter
	Path string
	Size int64
}

type Result struct {
	Plan     *Plan
	Exported []ExportedChapter
}
