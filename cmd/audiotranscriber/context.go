package main

import (
	"strings"
	"sync"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *AppConfig
	configErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, envFileFlag: envFileFlag}
}

// ensureConfig loads the configuration once per process. Defaults are
// applied and the result validated.
func (c *commandContext) ensureConfig() (*AppConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := loadConfig(flagValue(c.configFlag), flagValue(c.envFileFlag))
		if err != nil {
			c.configErr = err
			return
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
