package config

import (
	"runtime"
	"time"
)

const (
	defaultOutputDir          = "."
	defaultFormat             = "wav"
	defaultChapterLength      = 30 * time.Minute
	defaultChapterVariability = 5 * time.Minute
	defaultSeparatorWindow    = 10 * time.Second
	defaultMinScore           = 0.2
	defaultSampleRate         = 11025
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultCommandTimeout     = 10 * time.Minute
	defaultLogLevel           = "info"
)

// Default returns a configuration populated with built-in defaults.
func Default() Config {
	return Config{
		Split: Split{
			OutputDir:          defaultOutputDir,
			Format:             defaultFormat,
			ChapterLength:      Duration{defaultChapterLength},
			ChapterVariability: Duration{defaultChapterVariability},
			SeparatorWindow:    Duration{defaultSeparatorWindow},
			MinScore:           defaultMinScore,
			Jobs:               runtime.NumCPU(),
		},
		Analysis: Analysis{
			SampleRate: defaultSampleRate,
		},
		Tools: Tools{
			FFmpeg:         defaultFFmpeg,
			FFprobe:        defaultFFprobe,
			CommandTimeout: Duration{defaultCommandTimeout},
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
