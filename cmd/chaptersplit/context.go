package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/himanishpuri/ChapterSplit/internal/config"
	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
	"github.com/himanishpuri/ChapterSplit/pkg/logger"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the configuration once and applies its log level.
// --log-level wins over the config file.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}

		levelName := cfg.Logging.Level
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			levelName = *c.logLevelFlag
		}
		level, err := logger.ParseLevel(levelName)
		if err != nil {
			c.configErr = fmt.Errorf("--log-level: %w", err)
			return
		}
		log := logger.GetLogger()
		log.SetLevel(level)
		if exists {
			log.Debugf("Loaded configuration from %s", resolved)
		}

		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *logger.Logger {
	return logger.GetLogger()
}

// newService builds a service from the loaded configuration plus extra options.
func (c *commandContext) newService(cfg *config.Config, extra ...chaptersplit.Option) (chaptersplit.Service, error) {
	opts := append(cfg.Options(), chaptersplit.WithLogger(c.logger()))
	opts = append(opts, extra...)
	return chaptersplit.NewService(opts...)
}
