package kafka

import (
	"strings"

	"github.com/kbukum/audiotranscriber/errors"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
	"network exception",
}

var retryablePatterns = []string{
	"temporary",
	"request timed out",
	"not enough replicas",
	"offset out of range",
}

var nonRetryablePatterns = []string{
	"message too large",
	"message size too large",
	"invalid topic",
	"invalid partition",
	"unknown topic",
	"authorization failed",
}

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports a connection-level broker error.
func IsConnectionError(err error) bool { return matches(err, connectionPatterns) }

// IsRetryableError reports whether a write may succeed if repeated.
func IsRetryableError(err error) bool {
	if IsNonRetryableError(err) {
		return false
	}
	return IsConnectionError(err) || matches(err, retryablePatterns)
}

// IsNonRetryableError reports errors that will fail again unchanged.
func IsNonRetryableError(err error) bool { return matches(err, nonRetryablePatterns) }

// EmitError wraps a failed write to topic as an EMIT_ERROR whose Retryable
// flag follows the broker error.
func EmitError(topic string, err error) *errors.AppError {
	if err == nil {
		return nil
	}
	e := errors.Emit(topic, err)
	e.Retryable = IsRetryableError(err)
	return e
}
