package chaptersplit

import (
	"context"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/correlate"
)

type Service interface {
	Plan(ctx context.Context, source, separator string) (*Plan, error)
	Export(ctx context.Context, plan *Plan) ([]ExportedChapter, error)
	Split(ctx context.Context, source, separator string) (*Result, error)
	Locate(ctx context.Context, source, separator string) (*correlate.Match, error)
}

// Media is the decoding/trimming collaborator. audio.FFmpeg is the
// production implementation.
type Media interface {
	Probe(ctx context.Context, path string) (*audio.Metadata, error)
	Decode(ctx context.Context, path string, r audio.Range, sampleRate int) ([]float64, error)
	Extract(ctx context.Context, req audio.ExtractRequest) error
}

// Progress receives chapter events as they happen. Calls to ChapterExported
// may come from several goroutines.
type Progress interface {
	ChapterPlanned(ch Chapter, duration float64)
	ChapterExported(ch ExportedChapter)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
