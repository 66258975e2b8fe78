package kafka

import (
	"fmt"
	"time"
)

// DefaultDeadLetterSuffix is appended to the emit tag to name the dead
// letter topic.
const DefaultDeadLetterSuffix = ".dead"

// Config holds Kafka connection and client settings.
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	// ClientID identifies this process to the brokers.
	ClientID string `mapstructure:"client_id"`

	// GroupID and Topics configure the record source.
	GroupID string   `mapstructure:"group_id"`
	Topics  []string `mapstructure:"topics"`
	// DeadLetterSuffix names the dead letter topic: <tag><suffix>.
	DeadLetterSuffix string `mapstructure:"dead_letter_suffix"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Producer
	Compression  string        `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int           `mapstructure:"retries"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	// MaxMessageBytes bounds both fetched and written messages. Inline audio
	// makes records large.
	MaxMessageBytes int `mapstructure:"max_message_bytes"`

	// Consumer
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  time.Duration `mapstructure:"rebalance_timeout"`

	// Connection
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.ClientID == "" {
		c.ClientID = "audiotranscriber"
	}
	if c.GroupID == "" {
		c.GroupID = "audiotranscriber"
	}
	if c.DeadLetterSuffix == "" {
		c.DeadLetterSuffix = DefaultDeadLetterSuffix
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 10 * time.Millisecond
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1 // all replicas
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 50 << 20
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 3 * time.Second
	}
	if c.RebalanceTimeout == 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.MetadataTTL == 0 {
		c.MetadataTTL = 6 * time.Second
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks the settings of an enabled config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	switch c.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("unsupported compression: %s", c.Compression)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0")
	}
	return nil
}

// ValidateSource checks the settings needed to consume records.
func (c *Config) ValidateSource() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.Enabled {
		return fmt.Errorf("kafka is disabled")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka group_id is required to consume")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("kafka topics are required to consume")
	}
	return nil
}

// DeadLetterTopic returns the dead letter topic for tag.
func (c *Config) DeadLetterTopic(tag string) string {
	suffix := c.DeadLetterSuffix
	if suffix == "" {
		suffix = DefaultDeadLetterSuffix
	}
	return tag + suffix
}
