package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Record processing errors ---

// Staging creates an error for an audio payload that could not be staged.
func Staging(path string, cause error) *AppError {
	e := New(ErrCodeStaging, "Failed to stage audio payload.", http.StatusInternalServerError)
	if path != "" {
		e.WithDetail("path", path)
	}
	return e.WithCause(cause)
}

// Transcription creates an error for a failed transcription engine call.
func Transcription(engine string, cause error) *AppError {
	return New(ErrCodeTranscription, fmt.Sprintf("The %s transcription engine failed.", engine), http.StatusBadGateway).
		WithDetail("engine", engine).
		WithCause(cause)
}

// Transcode creates an error for a failed or empty transcoder run.
func Transcode(input string, cause error) *AppError {
	return New(ErrCodeTranscode, "Failed to transcode audio.", http.StatusBadGateway).
		WithDetail("input", input).
		WithCause(cause)
}

// MissingAudio creates an error for a record without a usable audio reference.
// An empty path means the audio field was absent altogether.
func MissingAudio(field, path string) *AppError {
	msg := fmt.Sprintf("Record has no audio in field %q.", field)
	if path != "" {
		msg = fmt.Sprintf("Audio file %s does not exist.", path)
	}
	e := New(ErrCodeMissingAudio, msg, http.StatusUnprocessableEntity).WithDetail("field", field)
	if path != "" {
		e.WithDetail("path", path)
	}
	return e
}

// Configuration creates the fatal startup error raised when an engine or its
// environment cannot be initialized.
func Configuration(reason string) *AppError {
	return New(ErrCodeConfiguration, reason, http.StatusInternalServerError)
}

// Emit creates an error for a record the downstream sink did not accept.
func Emit(tag string, cause error) *AppError {
	return New(ErrCodeEmit, fmt.Sprintf("Failed to emit record with tag %s.", tag), http.StatusBadGateway).
		WithDetail("tag", tag).
		WithCause(cause)
}

// --- Common Error Constructors ---

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The operation took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// InvalidToken creates a new AppError for an invalid bearer token.
func InvalidToken() *AppError {
	return &AppError{
		Code: ErrCodeInvalidToken, Message: "Invalid authentication token.",
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a ledger database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// --- Classification ---

// KindOf returns the code of the first AppError in err's chain, or
// ErrCodeInternal when err carries none.
func KindOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsFatal reports whether err must stop the pipeline. Only configuration
// errors are fatal; everything else is scoped to one record.
func IsFatal(err error) bool {
	return KindOf(err) == ErrCodeConfiguration
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	return KindOf(err) == code
}
