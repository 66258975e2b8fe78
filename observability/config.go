package observability

import (
	"fmt"
	"time"
)

// Config holds exporter settings shared by traces and metrics.
type Config struct {
	// Enabled starts the OTLP exporters. When false the global no-op
	// providers stay in place and instruments record nothing.
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`
	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the exporter settings.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("observability endpoint is required")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}
