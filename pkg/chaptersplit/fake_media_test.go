package chaptersplit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit/audio"
)

const testRate = 200

func noise(n int, amp float64, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (r.Float64()*2 - 1)
	}
	return out
}

// recording returns durationSec of quiet noise with sep mixed in at each of
// the given positions (seconds).
func recording(durationSec float64, sep []float64, at ...float64) []float64 {
	out := noise(int(math.Round(durationSec*testRate)), 0.05, 7)
	for _, pos := range at {
		start := int(math.Round(pos * testRate))
		for i, v := range sep {
			if start+i < len(out) {
				out[start+i] += v
			}
		}
	}
	return out
}

// fakeMedia serves in-memory signals sampled at testRate.
type fakeMedia struct {
	signals map[string][]float64
	tags    map[string]string

	probeErr   error
	decodeErr  error
	extractErr error

	mu       sync.Mutex
	decoded  []audio.Range
	extracts []audio.ExtractRequest
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{signals: make(map[string][]float64)}
}

func (m *fakeMedia) Probe(ctx context.Context, path string) (*audio.Metadata, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	s, ok := m.signals[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return &audio.Metadata{
		Filename:    path,
		DurationSec: float64(len(s)) / testRate,
		SampleRate:  testRate,
		Channels:    1,
		Tags:        m.tags,
	}, nil
}

func (m *fakeMedia) Decode(ctx context.Context, path string, r audio.Range, sampleRate int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.decodeErr != nil {
		return nil, m.decodeErr
	}
	if sampleRate != testRate {
		return nil, fmt.Errorf("unexpected sample rate %d", sampleRate)
	}
	s, ok := m.signals[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}

	m.mu.Lock()
	m.decoded = append(m.decoded, r)
	m.mu.Unlock()

	start := int(math.Round(r.Start * testRate))
	if start > len(s) {
		start = len(s)
	}
	end := len(s)
	if r.Length > 0 {
		end = min(start+int(math.Round(r.Length*testRate)), len(s))
	}
	out := make([]float64, end-start)
	copy(out, s[start:end])
	return out, nil
}

func (m *fakeMedia) Extract(ctx context.Context, req audio.ExtractRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.extractErr != nil {
		return m.extractErr
	}
	// one byte per centisecond of audio
	size := int(math.Round(req.Range.Length * 100))
	if err := os.WriteFile(req.Destination, make([]byte, size), 0o644); err != nil {
		return err
	}

	m.mu.Lock()
	m.extracts = append(m.extracts, req)
	m.mu.Unlock()
	return nil
}

// recordingLogger keeps warnings so tests can assert on them.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Infof(format string, args ...any)  {}
func (l *recordingLogger) Debugf(format string, args ...any) {}
func (l *recordingLogger) Errorf(format string, args ...any) {}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

// recordingProgress collects chapter events.
type recordingProgress struct {
	mu       sync.Mutex
	planned  []Chapter
	exported []int
}

func (p *recordingProgress) ChapterPlanned(ch Chapter, duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.planned = append(p.planned, ch)
}

func (p *recordingProgress) ChapterExported(ch ExportedChapter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exported = append(p.exported, ch.Number)
}
