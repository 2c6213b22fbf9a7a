package chaptersplit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

const (
	bookPath    = "book.wav"
	chimePath   = "chime.wav"
	excerptPath = "excerpt.wav"
)

func newTestMedia() *fakeMedia {
	sep := noise(testRate, 1, 99)
	m := newFakeMedia()
	m.signals[chimePath] = sep
	m.signals[bookPath] = recording(38, sep, 9.5, 20.2, 31)
	m.signals[excerptPath] = recording(8, sep, 3.25)
	m.tags = map[string]string{"title": "My Book", "artist": "Reader", "date": "2019"}
	return m
}

func newTestService(t *testing.T, media *fakeMedia, opts ...Option) *splitService {
	t.Helper()
	base := []Option{
		WithMedia(media),
		WithLogger(&recordingLogger{}),
		WithSampleRate(testRate),
		WithChapterLength(10 * time.Second),
		WithVariability(2 * time.Second),
		WithSeparatorWindow(500 * time.Millisecond),
		WithOutputDir(t.TempDir()),
		WithJobs(2),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc.(*splitService)
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"variability not shorter than length", []Option{WithChapterLength(time.Minute), WithVariability(time.Minute)}},
		{"zero length", []Option{WithChapterLength(0)}},
		{"zero sample rate", []Option{WithSampleRate(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithMedia(newFakeMedia()), WithLogger(&recordingLogger{})}, tt.opts...)
			if _, err := NewService(opts...); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestNewServiceNormalizesSettings(t *testing.T) {
	svc := newTestService(t, newFakeMedia(), WithFormat(" .mp3 "), WithJobs(0))
	if svc.config.Format != "mp3" {
		t.Errorf("format = %q, want mp3", svc.config.Format)
	}
	if svc.config.Jobs != 1 {
		t.Errorf("jobs = %d, want 1", svc.config.Jobs)
	}
}

func TestPlanFindsEverySeparator(t *testing.T) {
	media := newTestMedia()
	progress := &recordingProgress{}
	svc := newTestService(t, media,
		WithTitles([]string{"Prologue", "", "The End"}),
		WithProgress(progress),
	)

	plan, err := svc.Plan(context.Background(), bookPath, chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if !near(plan.Duration, 38) || !near(plan.SeparatorLength, 1) || !near(plan.ReferenceLength, 0.5) {
		t.Errorf("unexpected plan lengths: duration %.3f, separator %.3f, reference %.3f",
			plan.Duration, plan.SeparatorLength, plan.ReferenceLength)
	}

	want := []struct {
		start, length float64
		title, file   string
	}{
		{0, 9.5, "Prologue", "Chapter 01 - Prologue.wav"},
		{9.5, 10.7, "Chapter 02", "Chapter 02.wav"},
		{20.2, 10.8, "The End", "Chapter 03 - The End.wav"},
		{31, 7, "Chapter 04", "Chapter 04.wav"},
	}
	if len(plan.Chapters) != len(want) {
		t.Fatalf("expected %d chapters, got %d", len(want), len(plan.Chapters))
	}
	for i, ch := range plan.Chapters {
		w := want[i]
		if !near(ch.Start, w.start) || !near(ch.Length, w.length) {
			t.Errorf("chapter %d = [%.3f +%.3f], want [%.3f +%.3f]", ch.Number, ch.Start, ch.Length, w.start, w.length)
		}
		if ch.Title != w.title || ch.FileName != w.file {
			t.Errorf("chapter %d named %q / %q, want %q / %q", ch.Number, ch.Title, ch.FileName, w.title, w.file)
		}
		if ch.LowConfidence {
			t.Errorf("chapter %d unexpectedly flagged (score %.3f)", ch.Number, ch.Match.Score)
		}
	}
	if plan.Chapters[0].Match.Score < 0.9 {
		t.Errorf("expected a near-perfect match, got score %.3f", plan.Chapters[0].Match.Score)
	}

	if len(progress.planned) != 4 || progress.planned[0].Title != "Prologue" {
		t.Errorf("progress should see 4 named chapters, got %+v", progress.planned)
	}

	// separator decoded once, then one window per searched chapter
	if len(media.decoded) != 4 {
		t.Errorf("expected 4 decodes, got %d", len(media.decoded))
	}
}

func TestPlanPadsWindowPastEnd(t *testing.T) {
	media := newTestMedia()
	media.signals["short.wav"] = recording(10.2, nil)
	svc := newTestService(t, media, WithVariability(0))

	plan, err := svc.Plan(context.Background(), "short.wav", chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(plan.Chapters))
	}
	if !near(plan.Chapters[0].Length, 10) {
		t.Errorf("first chapter length = %.3f, want 10", plan.Chapters[0].Length)
	}
	if !near(plan.Chapters[1].End(), 10.2) {
		t.Errorf("last chapter should end at 10.2, got %.3f", plan.Chapters[1].End())
	}
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(m *fakeMedia)
		source    string
		separator string
		wantErr   string
		wantIs    error
	}{
		{
			name:      "probe fails",
			setup:     func(m *fakeMedia) { m.probeErr = errors.New("ffprobe missing") },
			source:    bookPath,
			separator: chimePath,
			wantErr:   "failed to probe",
		},
		{
			name:      "empty recording",
			setup:     func(m *fakeMedia) { m.signals["silent.wav"] = nil },
			source:    "silent.wav",
			separator: chimePath,
			wantErr:   "could not determine duration",
		},
		{
			name:      "empty separator",
			setup:     func(m *fakeMedia) { m.signals["empty.wav"] = []float64{} },
			source:    bookPath,
			separator: "empty.wav",
			wantIs:    ErrInvalidParams,
		},
		{
			name:      "decode fails",
			setup:     func(m *fakeMedia) { m.decodeErr = errors.New("corrupt stream") },
			source:    bookPath,
			separator: chimePath,
			wantErr:   "failed to decode separator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media := newTestMedia()
			tt.setup(media)
			svc := newTestService(t, media)

			_, err := svc.Plan(context.Background(), tt.source, tt.separator)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected %v, got %v", tt.wantIs, err)
			}
		})
	}
}

func TestExportWritesChaptersWithTags(t *testing.T) {
	media := newTestMedia()
	progress := &recordingProgress{}
	outDir := t.TempDir()
	svc := newTestService(t, media,
		WithOutputDir(outDir),
		WithTitles([]string{"Prologue"}),
		WithProgress(progress),
	)

	plan, err := svc.Plan(context.Background(), bookPath, chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	exported, err := svc.Export(context.Background(), plan)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantSizes := []int64{950, 1070, 1080, 700}
	if len(exported) != len(wantSizes) {
		t.Fatalf("expected %d exported chapters, got %d", len(wantSizes), len(exported))
	}
	for i, ex := range exported {
		if ex.Number != i+1 {
			t.Errorf("exported[%d] is chapter %d", i, ex.Number)
		}
		if ex.Path != filepath.Join(outDir, ex.FileName) {
			t.Errorf("chapter %d written to %s", ex.Number, ex.Path)
		}
		if ex.Size != wantSizes[i] {
			t.Errorf("chapter %d size = %d, want %d", ex.Number, ex.Size, wantSizes[i])
		}
	}

	if len(media.extracts) != 4 {
		t.Fatalf("expected 4 extract calls, got %d", len(media.extracts))
	}
	sort.Slice(media.extracts, func(i, j int) bool {
		return media.extracts[i].Range.Start < media.extracts[j].Range.Start
	})
	first := media.extracts[0]
	if first.Source != bookPath || first.Range.Start != 0 || !near(first.Range.Length, 9.5) {
		t.Errorf("unexpected first extract: %+v", first)
	}
	wantTags := map[string]string{
		"title":        "Prologue",
		"track":        "1/4",
		"album":        "My Book",
		"artist":       "Reader",
		"album_artist": "Reader",
		"genre":        "",
		"date":         "2019",
	}
	for k, v := range wantTags {
		if got := first.Tags[k]; got != v {
			t.Errorf("tag %s = %q, want %q", k, got, v)
		}
	}
	if got := media.extracts[3].Tags["track"]; got != "4/4" {
		t.Errorf("last track tag = %q, want 4/4", got)
	}

	if len(progress.exported) != 4 {
		t.Errorf("expected 4 export events, got %v", progress.exported)
	}
	assertLockReleased(t, outDir)
}

// assertLockReleased checks the lock file is left in place and can be taken again.
func assertLockReleased(t *testing.T, outDir string) {
	t.Helper()
	path := filepath.Join(outDir, lockFileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file should stay in the output directory: %v", err)
	}
	again := flock.New(path)
	ok, err := again.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock should be free after export: ok=%v err=%v", ok, err)
	}
	again.Unlock()
}

func TestExportRefusesLockedDirectory(t *testing.T) {
	media := newTestMedia()
	outDir := t.TempDir()
	svc := newTestService(t, media, WithOutputDir(outDir))

	held := flock.New(filepath.Join(outDir, lockFileName))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not take lock for test: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	plan, err := svc.Plan(context.Background(), bookPath, chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	_, err = svc.Export(context.Background(), plan)
	if !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("expected ErrOutputLocked, got %v", err)
	}
	if len(media.extracts) != 0 {
		t.Errorf("nothing should be extracted while locked, got %d", len(media.extracts))
	}
}

func TestExportPropagatesExtractErrors(t *testing.T) {
	media := newTestMedia()
	outDir := t.TempDir()
	svc := newTestService(t, media, WithOutputDir(outDir))

	plan, err := svc.Plan(context.Background(), bookPath, chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	media.extractErr = errors.New("disk full")
	_, err = svc.Export(context.Background(), plan)
	if err == nil || !strings.Contains(err.Error(), "disk full") || !strings.Contains(err.Error(), "chapter") {
		t.Fatalf("expected wrapped extract error, got %v", err)
	}
	assertLockReleased(t, outDir)
}

func TestExportTwiceReusesLockFile(t *testing.T) {
	media := newTestMedia()
	outDir := t.TempDir()
	svc := newTestService(t, media, WithOutputDir(outDir))

	plan, err := svc.Plan(context.Background(), bookPath, chimePath)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Export(context.Background(), plan); err != nil {
			t.Fatalf("Export %d failed: %v", i+1, err)
		}
	}
	assertLockReleased(t, outDir)
}

func TestExportEmptyPlan(t *testing.T) {
	svc := newTestService(t, newTestMedia())
	if _, err := svc.Export(context.Background(), &Plan{}); err == nil {
		t.Error("expected error for an empty plan")
	}
	if _, err := svc.Export(context.Background(), nil); err == nil {
		t.Error("expected error for a nil plan")
	}
}

func TestSplit(t *testing.T) {
	t.Run("exports", func(t *testing.T) {
		media := newTestMedia()
		svc := newTestService(t, media, WithFormat("mp3"))

		res, err := svc.Split(context.Background(), bookPath, chimePath)
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if len(res.Plan.Chapters) != 4 || len(res.Exported) != 4 {
			t.Fatalf("expected 4 planned and exported chapters, got %d and %d",
				len(res.Plan.Chapters), len(res.Exported))
		}
		if !strings.HasSuffix(res.Exported[0].Path, "Chapter 01.mp3") {
			t.Errorf("unexpected file %s", res.Exported[0].Path)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		media := newTestMedia()
		svc := newTestService(t, media, WithDryRun(true))

		res, err := svc.Split(context.Background(), bookPath, chimePath)
		if err != nil {
			t.Fatalf("Split failed: %v", err)
		}
		if len(res.Plan.Chapters) != 4 {
			t.Errorf("expected 4 planned chapters, got %d", len(res.Plan.Chapters))
		}
		if res.Exported != nil || len(media.extracts) != 0 {
			t.Errorf("dry run must not export, got %d files", len(media.extracts))
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc := newTestService(t, newTestMedia())

		if _, err := svc.Split(ctx, bookPath, chimePath); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLocate(t *testing.T) {
	media := newTestMedia()
	svc := newTestService(t, media)

	m, err := svc.Locate(context.Background(), excerptPath, chimePath)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if m.Offset != 3.25 {
		t.Errorf("Offset = %.2f, want 3.25", m.Offset)
	}
	if m.Score < 0.9 {
		t.Errorf("Score = %.3f, want a near-perfect match", m.Score)
	}

	if _, err := svc.Locate(context.Background(), "missing.wav", chimePath); err == nil {
		t.Error("expected error for an unknown recording")
	}
}

func TestChapterTagsWithoutMetadata(t *testing.T) {
	tags := chapterTags(Chapter{Number: 2, Title: "Two"}, 5, nil)
	if tags["title"] != "Two" || tags["track"] != "2/5" {
		t.Errorf("unexpected tags %v", tags)
	}
	if tags["album"] != "" || tags["artist"] != "" {
		t.Errorf("expected empty inherited tags, got %v", tags)
	}
}
