package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/resilience"
	"github.com/kbukum/audiotranscriber/version"
)

const (
	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperTimeout = 120 * time.Second
)

// statusError is a non-2xx sidecar response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("whisper sidecar returned status %d: %s", e.Status, e.Body)
}

func (e *statusError) transient() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// WhisperHTTP transcribes through a faster-whisper HTTP sidecar.
type WhisperHTTP struct {
	url     string
	client  *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// NewWhisperHTTP creates the sidecar client. It does not contact the
// sidecar; use IsAvailable for that.
func NewWhisperHTTP(cfg EngineConfig) *WhisperHTTP {
	url := strings.TrimRight(cfg.URL, "/")
	if url == "" {
		url = defaultWhisperURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWhisperTimeout
	}
	log := cfg.log().WithComponent("transcription.whisper_http")

	retry := cfg.Retry
	retry.RetryIf = isTransient
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.WithError(err).Warn("retrying whisper sidecar request", logger.Fields("attempt", attempt, "backoff_ms", backoff.Milliseconds()))
	}

	cb := cfg.CircuitBreaker
	if cb.Name == "" {
		cb.Name = EngineWhisperHTTP
	}
	cb.IsFailure = isTransient
	cb.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("circuit breaker state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
	}

	return &WhisperHTTP{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cb),
		log:     log,
	}
}

func isTransient(err error) bool {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.transient()
	}
	return resilience.DefaultRetryIf(err)
}

// Name returns "whisper_http".
func (w *WhisperHTTP) Name() string { return EngineWhisperHTTP }

// IsAvailable reports whether the sidecar answers /health with 200.
func (w *WhisperHTTP) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Transcribe uploads the audio file and decodes the returned segments.
func (w *WhisperHTTP) Transcribe(ctx context.Context, audioPath string, cfg Config) (*Result, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, errors.Transcription(EngineWhisperHTTP, fmt.Errorf("read audio file: %w", err))
	}

	res, err := resilience.Retry(ctx, w.retry, func() (*Result, error) {
		var out *Result
		err := w.breaker.Execute(func() error {
			var callErr error
			out, callErr = w.post(ctx, audioPath, audio, cfg)
			return callErr
		})
		return out, err
	})
	if err != nil {
		return nil, errors.Transcription(EngineWhisperHTTP, err)
	}
	return res, nil
}

func (w *WhisperHTTP) post(ctx context.Context, audioPath string, audio []byte, cfg Config) (*Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = mw.WriteField("model", cfg.ModelID)
	_ = mw.WriteField("language", cfg.Language)
	if cfg.InitialPrompt != "" {
		_ = mw.WriteField("initial_prompt", cfg.InitialPrompt)
	}
	_ = mw.WriteField("temperature", formatLadder(cfg.Temperatures))
	_ = mw.WriteField("condition_on_previous_text", strconv.FormatBool(cfg.ConditionOnPreviousText))
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	lang := out.Language
	if lang == "" {
		lang = cfg.Language
	}
	return newResult(out.Segments, lang), nil
}

type whisperResponse struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

func formatLadder(temps []float64) string {
	parts := make([]string, len(temps))
	for i, t := range temps {
		parts[i] = strconv.FormatFloat(t, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
