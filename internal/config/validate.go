package config

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/ChapterSplit/pkg/logger"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSplit() error {
	length := c.Split.ChapterLength.Duration
	variability := c.Split.ChapterVariability.Duration

	if length <= 0 {
		return errors.New("split.chapter_length must be positive")
	}
	if variability < 0 {
		return errors.New("split.chapter_variability must not be negative")
	}
	if variability >= length {
		return fmt.Errorf("split.chapter_variability (%s) must be shorter than split.chapter_length (%s)", variability, length)
	}
	if c.Split.SeparatorWindow.Duration < 0 {
		return errors.New("split.separator_window must not be negative")
	}
	if c.Split.MinScore < -1 || c.Split.MinScore > 1 {
		return errors.New("split.min_score must be between -1 and 1")
	}
	if c.Split.Jobs < 1 {
		return errors.New("split.jobs must be at least 1")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.SampleRate <= 0 {
		return errors.New("analysis.sample_rate must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
