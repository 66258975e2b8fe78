package middleware

import (
	"fmt"
	"net/http"
	"strings"
)

// DefaultMaxBodySize bounds an ingest batch when no limit is configured.
const DefaultMaxBodySize = 64 << 20

// BodySizeLimit returns middleware that restricts the request body to the
// given size string (e.g. "64MB", "512KB", "1GB").
func BodySizeLimit(maxSize string) Middleware {
	size := ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// ParseSize parses a human-readable size ("10MB", "512KB", "2GB", "1024")
// into bytes. It returns defaultBytes if s is empty or malformed.
func ParseSize(s string, defaultBytes int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBytes
	}

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	var val int64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &val); err != nil || val <= 0 {
		return defaultBytes
	}
	return val * multiplier
}
