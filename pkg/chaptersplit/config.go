package chaptersplit

import (
	"os"
	"runtime"
	"time"
)

type Config struct {
	OutputDir       string
	Format          string // output file extension, e.g. "wav", "mp3", "m4a"
	Titles          []string
	ChapterLength   time.Duration
	Variability     time.Duration
	SeparatorWindow time.Duration
	SampleRate      int
	MinScore        float64
	SkipSeparator   bool
	DryRun          bool
	Jobs            int
	TempDir         string
	FFmpegPath      string
	FFprobePath     string
	CommandTimeout  time.Duration
	Logger          Logger
	Media           Media
	Progress        Progress
}

type Option func(*Config)

func WithOutputDir(dir string) Option {
	return func(c *Config) {
		c.OutputDir = dir
	}
}

func WithFormat(ext string) Option {
	return func(c *Config) {
		c.Format = ext
	}
}

func WithTitles(titles []string) Option {
	return func(c *Config) {
		c.Titles = titles
	}
}

func WithChapterLength(d time.Duration) Option {
	return func(c *Config) {
		c.ChapterLength = d
	}
}

func WithVariability(d time.Duration) Option {
	return func(c *Config) {
		c.Variability = d
	}
}

func WithSeparatorWindow(d time.Duration) Option {
	return func(c *Config) {
		c.SeparatorWindow = d
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithMinScore(score float64) Option {
	return func(c *Config) {
		c.MinScore = score
	}
}

func WithSkipSeparator(skip bool) Option {
	return func(c *Config) {
		c.SkipSeparator = skip
	}
}

func WithDryRun(dryRun bool) Option {
	return func(c *Config) {
		c.DryRun = dryRun
	}
}

func WithJobs(n int) Option {
	return func(c *Config) {
		c.Jobs = n
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithFFmpeg(ffmpegPath, ffprobePath string) Option {
	return func(c *Config) {
		c.FFmpegPath = ffmpegPath
		c.FFprobePath = ffprobePath
	}
}

func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CommandTimeout = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithMedia replaces the ffmpeg-backed media layer, mostly for tests.
func WithMedia(m Media) Option {
	return func(c *Config) {
		c.Media = m
	}
}

func WithProgress(p Progress) Option {
	return func(c *Config) {
		c.Progress = p
	}
}

func defaultConfig() *Config {
	return &Config{
		OutputDir:       ".",
		Format:          "wav",
		ChapterLength:   30 * time.Minute,
		Variability:     5 * time.Minute,
		SeparatorWindow: 10 * time.Second,
		SampleRate:      11025,
		MinScore:        0.2,
		Jobs:            runtime.NumCPU(),
		TempDir:         os.TempDir(),
	}
}

func (c *Config) chainParams() ChainParams {
	return ChainParams{
		ChapterLength:   c.ChapterLength,
		Variability:     c.Variability,
		SeparatorWindow: c.SeparatorWindow,
		SkipSeparator:   c.SkipSeparator,
		MinScore:        c.MinScore,
	}
}
