package server

import (
	"fmt"

	"github.com/kbukum/audiotranscriber/server/middleware"
)

// Config holds HTTP ingest server configuration.
type Config struct {
	Enabled      bool                  `yaml:"enabled" mapstructure:"enabled"`
	Host         string                `yaml:"host" mapstructure:"host"`
	Port         int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout  int                   `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int                   `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                   `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string                `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "64MB"
	RateLimit    int                   `yaml:"rate_limit" mapstructure:"rate_limit"`       // ingest requests per minute, 0 disables
	CORS         middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	Auth         middleware.JWTConfig  `yaml:"auth" mapstructure:"auth"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60
	}
	// A batch is transcribed before the response is written.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 600
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "64MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	}
	c.Auth.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be non-negative (got: %d)", c.RateLimit)
	}
	if c.MaxBodySize != "" && middleware.ParseSize(c.MaxBodySize, -1) < 0 {
		return fmt.Errorf("server.max_body_size is not a size (got: %s)", c.MaxBodySize)
	}
	return c.Auth.Validate()
}
