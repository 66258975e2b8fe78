package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Per-record processing errors. These are isolated to the record that raised
// them and never stop the pipeline.
const (
	// ErrCodeStaging indicates the audio payload could not be written to temporary storage.
	ErrCodeStaging ErrorCode = "STAGING_ERROR"
	// ErrCodeTranscription indicates the transcription engine failed or returned unusable output.
	ErrCodeTranscription ErrorCode = "TRANSCRIPTION_ERROR"
	// ErrCodeTranscode indicates the transcoder failed or produced an empty output.
	ErrCodeTranscode ErrorCode = "TRANSCODE_ERROR"
	// ErrCodeMissingAudio indicates the record has no usable audio reference.
	ErrCodeMissingAudio ErrorCode = "MISSING_AUDIO"
	// ErrCodeEmit indicates the downstream collaborator rejected the record.
	ErrCodeEmit ErrorCode = "EMIT_ERROR"
)

// Startup errors
const (
	// ErrCodeConfiguration indicates the engine or environment is not initialized.
	// This is the only fatal code.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates a collaborator is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidToken indicates the bearer token is invalid or expired.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a ledger database failure.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeEmit:               true,
	ErrCodeStaging:            false,
	ErrCodeTranscription:      false,
	ErrCodeTranscode:          false,
	ErrCodeMissingAudio:       false,
	ErrCodeConfiguration:      false,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
