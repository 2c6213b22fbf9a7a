package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
)

//go:embed sample_config.toml
var sampleConfig string

// Environment overrides, applied on top of the config file.
const (
	EnvTempDir = "CHAPTERSPLIT_TEMP_DIR"
	EnvFFmpeg  = "CHAPTERSPLIT_FFMPEG"
	EnvFFprobe = "CHAPTERSPLIT_FFPROBE"
)

// Duration is a time.Duration written as a Go duration string ("30m", "10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Split holds the chapter detection and export settings.
type Split struct {
	OutputDir          string   `toml:"output_dir"`
	Format             string   `toml:"format"`
	ChapterLength      Duration `toml:"chapter_length"`
	ChapterVariability Duration `toml:"chapter_variability"`
	SeparatorWindow    Duration `toml:"separator_window"`
	SkipSeparator      bool     `toml:"skip_separator"`
	MinScore           float64  `toml:"min_score"`
	Jobs               int      `toml:"jobs"`
}

// Analysis holds the settings of the decoded analysis audio.
type Analysis struct {
	SampleRate int `toml:"sample_rate"`
}

// Tools locates the external binaries and their scratch space.
type Tools struct {
	FFmpeg         string   `toml:"ffmpeg"`
	FFprobe        string   `toml:"ffprobe"`
	TempDir        string   `toml:"temp_dir"`
	CommandTimeout Duration `toml:"command_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for chaptersplit.
type Config struct {
	Split    Split    `toml:"split"`
	Analysis Analysis `toml:"analysis"`
	Tools    Tools    `toml:"tools"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/chaptersplit/config.toml,
// falling back to ~/.config.
func DefaultConfigPath() (string, error) {
	if base, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && strings.TrimSpace(base) != "" {
		return expandPath(filepath.Join(base, "chaptersplit", "config.toml"))
	}
	return expandPath("~/.config/chaptersplit/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults are used instead. The returned config has
// environment overrides applied and all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvTempDir)); v != "" {
		c.Tools.TempDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFFmpeg)); v != "" {
		c.Tools.FFmpeg = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFFprobe)); v != "" {
		c.Tools.FFprobe = v
	}
}

// Options translates the configuration into library options.
func (c *Config) Options() []chaptersplit.Option {
	return []chaptersplit.Option{
		chaptersplit.WithOutputDir(c.Split.OutputDir),
		chaptersplit.WithFormat(c.Split.Format),
		chaptersplit.WithChapterLength(c.Split.ChapterLength.Duration),
		chaptersplit.WithVariability(c.Split.ChapterVariability.Duration),
		chaptersplit.WithSeparatorWindow(c.Split.SeparatorWindow.Duration),
		chaptersplit.WithSkipSeparator(c.Split.SkipSeparator),
		chaptersplit.WithMinScore(c.Split.MinScore),
		chaptersplit.WithJobs(c.Split.Jobs),
		chaptersplit.WithSampleRate(c.Analysis.SampleRate),
		chaptersplit.WithFFmpeg(c.Tools.FFmpeg, c.Tools.FFprobe),
		chaptersplit.WithTempDir(c.Tools.TempDir),
		chaptersplit.WithCommandTimeout(c.Tools.CommandTimeout.Duration),
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
