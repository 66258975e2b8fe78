package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Default configuration values.
const (
	DefaultProvider    = ProviderLocal
	DefaultBasePath    = "./archive"
	DefaultRegion      = "us-east-1"
	DefaultMaxFileSize = int64(500 * 1024 * 1024)
)

// Config holds archive configuration for every backend; each backend reads
// the fields it needs.
type Config struct {
	// Enabled controls whether transcoded audio is archived.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Provider selects the storage backend: "local" or "s3".
	Provider string `mapstructure:"provider" json:"provider"`

	// Prefix is prepended to every object key (e.g. "transcoded/").
	Prefix string `mapstructure:"prefix" json:"prefix"`

	// MaxFileSize is the maximum allowed object size in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" json:"max_file_size"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" json:"base_path"`

	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket" json:"bucket"`

	// Region is the AWS region for S3.
	Region string `mapstructure:"region" json:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	// AccessKey is the AWS access key ID.
	AccessKey string `mapstructure:"access_key" json:"-"`

	// SecretKey is the AWS secret access key.
	SecretKey string `mapstructure:"secret_key" json:"-"`

	// ForcePathStyle forces path-style URLs instead of virtual-hosted-style.
	ForcePathStyle bool `mapstructure:"force_path_style" json:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.HasPrefix(c.Prefix, "/") || strings.Contains(c.Prefix, "..") {
		return fmt.Errorf("storage: prefix %q must be relative", c.Prefix)
	}
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("storage: bucket is required for s3 provider"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("storage: region is required for s3 provider"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("storage: access_key and secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}
