package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSplit(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSplit() error {
	var err error
	if strings.TrimSpace(c.Split.OutputDir) == "" {
		c.Split.OutputDir = defaultOutputDir
	}
	if c.Split.OutputDir, err = expandPath(c.Split.OutputDir); err != nil {
		return fmt.Errorf("split.output_dir: %w", err)
	}
	c.Split.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Split.Format), "."))
	if c.Split.Format == "" {
		c.Split.Format = defaultFormat
	}
	return nil
}

func (c *Config) normalizeTools() error {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}

	if strings.TrimSpace(c.Tools.TempDir) == "" {
		c.Tools.TempDir = os.TempDir()
	}
	var err error
	if c.Tools.TempDir, err = expandPath(c.Tools.TempDir); err != nil {
		return fmt.Errorf("tools.temp_dir: %w", err)
	}
	if c.Tools.CommandTimeout.Duration <= 0 {
		c.Tools.CommandTimeout.Duration = defaultCommandTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
