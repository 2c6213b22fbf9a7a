package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

const (
	DefaultSampleRate     = 11025
	DefaultCommandTimeout = 10 * time.Minute
)

// Range selects a portion of a recording, in seconds.
// A zero Length means "until the end".
type Range struct {
	Start  float64
	Length float64
}

// ExtractRequest describes one chapter cut.
type ExtractRequest struct {
	Source      string
	Destination string
	Range       Range
	Tags        map[string]string
}

type Config struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	Timeout     time.Duration // applied when the caller's context has no deadline
}

// FFmpeg shells out to ffmpeg/ffprobe for every decoding, probing and
// trimming need of the splitter.
type FFmpeg struct {
	cfg Config
}

func New(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCommandTimeout
	}
	return &FFmpeg{cfg: cfg}
}

// Decode cuts r out of path, downmixes it to mono and resamples it to
// sampleRate, returning normalized samples.
func (f *FFmpeg) Decode(ctx context.Context, path string, r Range, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	if err := utils.MakeDir(f.cfg.TempDir); err != nil {
		return nil, err
	}
	tmpPath := utils.TempPath(f.cfg.TempDir, ".wav")
	defer utils.DeleteFile(tmpPath)

	if err := f.run(ctx, decodeArgs(path, r, sampleRate, tmpPath)); err != nil {
		return nil, err
	}

	samples, rate, err := ReadWavMono(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoded audio: %w", err)
	}
	if rate != sampleRate {
		return nil, fmt.Errorf("decoded sample rate %d, expected %d", rate, sampleRate)
	}
	return samples, nil
}

// Extract writes req.Range of req.Source to req.Destination. The output is
// written under a temporary name first so a partial file never carries the
// final chapter name.
func (f *FFmpeg) Extract(ctx context.Context, req ExtractRequest) error {
	if req.Range.Length < 0 || req.Range.Start < 0 {
		return fmt.Errorf("invalid range %.2f+%.2f", req.Range.Start, req.Range.Length)
	}

	dir := filepath.Dir(req.Destination)
	if err := utils.MakeDir(dir); err != nil {
		return err
	}
	tmpPath := utils.TempPath(dir, filepath.Ext(req.Destination))
	defer utils.DeleteFile(tmpPath)

	if err := f.run(ctx, extractArgs(req, tmpPath)); err != nil {
		return err
	}
	return utils.MoveFile(tmpPath, req.Destination)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.cfg.FFmpegPath, args...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (f *FFmpeg) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.cfg.Timeout)
}

func seekArgs(r Range) []string {
	var args []string
	if r.Start > 0 {
		args = append(args, "-ss", formatSeconds(r.Start))
	}
	if r.Length > 0 {
		args = append(args, "-t", formatSeconds(r.Length))
	}
	return args
}

func decodeArgs(src string, r Range, sampleRate int, dst string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	args = append(args, seekArgs(r)...)
	return append(args,
		"-i", src,
		"-vn",
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-c:a", "pcm_s16le",
		dst,
	)
}

func extractArgs(req ExtractRequest, dst string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	args = append(args, seekArgs(req.Range)...)
	args = append(args, "-i", req.Source, "-vn", "-map_metadata", "-1")

	keys := make([]string, 0, len(req.Tags))
	for k := range req.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := req.Tags[k]; v != "" {
			args = append(args, "-metadata", k+"="+v)
		}
	}
	return append(args, dst)
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%.2f", sec)
}
