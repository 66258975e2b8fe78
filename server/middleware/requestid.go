package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/audiotranscriber/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// RequestID makes sure every request has an X-Request-Id. An incoming id is
// kept; otherwise a UUID is generated. The id is echoed on the response and
// stored in the request context for logger.WithContext.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := logger.ContextWithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
