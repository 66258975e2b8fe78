package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/audiotranscriber/logger"
)

// probePaths are polled by orchestrators and never logged.
var probePaths = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/alive":  true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status code, and duration. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.written,
				logger.FieldDuration, duration.Milliseconds(),
			)
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields[logger.FieldRequestID] = id
			}
			if duration > 5*time.Second {
				fields["slow"] = true
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
