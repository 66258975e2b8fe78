// Package server provides the HTTP ingest surface: a Gin engine served over
// HTTP/1.1 and h2c, with POST /v1/records feeding a batch to the
// coordinator and /health, /ready, /alive and /version for operators.
//
// # Middleware
//
// Server-level (server/middleware, applied by ApplyMiddleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body limit
//   - RequestLogger: request logging with duration
//
// Ingest route only:
//
//   - Observe: OpenTelemetry span and request metrics
//   - Auth: HMAC JWT bearer tokens
//   - RateLimit: per-subject sliding window
package server
