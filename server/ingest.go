package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/audiotranscriber/coordinator"
	apperrors "github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/observability"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/server/middleware"
)

// IngestPath receives a record or an array of records.
const IngestPath = "/v1/records"

// Ingester processes a decoded batch. *coordinator.Coordinator implements it.
type Ingester interface {
	ProcessBatch(ctx context.Context, recs []*record.Record) coordinator.BatchReport
}

// IngestOptions configures the ingest route.
type IngestOptions struct {
	ServiceName string
	// BinaryFields are base64-decoded after JSON decoding, typically the
	// configured content field.
	BinaryFields []string
	Metrics      *observability.Metrics
	// Validator enables bearer auth when non-nil.
	Validator middleware.TokenValidator
	// RateLimit is requests per minute per caller; 0 disables it.
	RateLimit int
}

// OutcomeView is one record's result in an ingest response.
type OutcomeView struct {
	Index     int    `json:"index"`
	AudioID   string `json:"audio_id"`
	State     string `json:"state"`
	Kind      string `json:"kind,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// BatchResponse summarizes a processed batch.
type BatchResponse struct {
	Received int           `json:"received"`
	Emitted  int           `json:"emitted"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Outcomes []OutcomeView `json:"outcomes"`
}

// NewBatchResponse converts a coordinator report.
func NewBatchResponse(report coordinator.BatchReport) BatchResponse {
	resp := BatchResponse{
		Received: len(report.Outcomes),
		Emitted:  report.Emitted,
		Skipped:  report.Skipped,
		Failed:   report.Failed,
		Outcomes: make([]OutcomeView, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		v := OutcomeView{
			Index:     o.Index,
			AudioID:   o.AudioID,
			State:     o.State.String(),
			Kind:      string(o.Kind),
			Reason:    o.Reason,
			ElapsedMs: o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, v)
	}
	return resp
}

// RegisterIngest mounts POST /v1/records backed by ing.
func (s *Server) RegisterIngest(ing Ingester, opts IngestOptions) {
	handlers := []gin.HandlerFunc{middleware.Observe(opts.ServiceName, opts.Metrics)}
	if opts.Validator != nil {
		handlers = append(handlers, middleware.Auth(opts.Validator))
	}
	if opts.RateLimit > 0 {
		handlers = append(handlers, middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: opts.RateLimit}))
	}

	h := &ingestHandler{ing: ing, binaryFields: opts.BinaryFields, log: s.log}
	v1 := s.engine.Group("/v1", handlers...)
	v1.POST("/records", h.ingest)
}

type ingestHandler struct {
	ing          Ingester
	binaryFields []string
	log          *logger.Logger
}

func (h *ingestHandler) ingest(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge).
				WithDetail("limit", tooLarge.Limit))
			return
		}
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}

	recs, err := record.DecodeJSONBatch(body, h.binaryFields...)
	if err != nil {
		RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if len(recs) == 0 {
		RespondWithError(c, apperrors.InvalidInput("body", "no records"))
		return
	}

	observability.SetSpanAttribute(ctx, observability.AttrRecords, len(recs))
	start := time.Now()
	report := h.ing.ProcessBatch(ctx, recs)

	if rejectedAll(report) {
		RespondWithError(c, apperrors.ServiceUnavailable("pipeline"))
		return
	}

	h.log.WithContext(ctx).Info("Batch processed", logger.Fields(
		"received", len(recs),
		"emitted", report.Emitted,
		"skipped", report.Skipped,
		"failed", report.Failed,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	RespondOK(c, NewBatchResponse(report))
}

// rejectedAll reports whether the coordinator refused the whole batch
// because it is shutting down.
func rejectedAll(report coordinator.BatchReport) bool {
	if len(report.Outcomes) == 0 {
		return false
	}
	for _, o := range report.Outcomes {
		if o.State != coordinator.Dropped || o.Kind != apperrors.ErrCodeServiceUnavailable {
			return false
		}
	}
	return true
}
