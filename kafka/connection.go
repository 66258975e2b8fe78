package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// NewTransport builds the producer transport with optional TLS and SASL.
func NewTransport(cfg *Config) (*kafkago.Transport, error) {
	transport := &kafkago.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
	}
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	transport.TLS = tc
	transport.SASL = m
	return transport, nil
}

// NewDialer builds the consumer dialer with optional TLS and SASL.
func NewDialer(cfg *Config) (*kafkago.Dialer, error) {
	dialer := &kafkago.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	dialer.TLS = tc
	dialer.SASLMechanism = m
	return dialer, nil
}

func security(cfg *Config) (*tls.Config, sasl.Mechanism, error) {
	var (
		tc  *tls.Config
		m   sasl.Mechanism
		err error
	)
	if cfg.EnableTLS {
		if tc, err = buildTLSConfig(cfg); err != nil {
			return nil, nil, fmt.Errorf("TLS config: %w", err)
		}
	}
	if cfg.EnableSASL {
		if m, err = buildSASLMechanism(cfg); err != nil {
			return nil, nil, fmt.Errorf("SASL config: %w", err)
		}
	}
	return tc, m, nil
}

func buildTLSConfig(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for test clusters
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tc.RootCAs = pool
	}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

// Compression maps a compression name to a kafka-go codec.
func Compression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "none":
		return 0
	default:
		return kafkago.Snappy
	}
}
