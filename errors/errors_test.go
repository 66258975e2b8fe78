package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeTranscription, "x", http.StatusBadGateway).Retryable {
		t.Error("TRANSCRIPTION_ERROR should not be retryable")
	}
}

func TestAppError_Error_WithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Staging("/tmp/x", cause)
	msg := err.Error()
	if !strings.Contains(msg, string(ErrCodeStaging)) {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "disk full") {
		t.Errorf("expected cause in message, got %q", msg)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Details["path"] != "/tmp/x" {
		t.Errorf("expected path detail, got %v", err.Details["path"])
	}
}

func TestMissingAudio_Messages(t *testing.T) {
	absent := MissingAudio("content", "")
	if _, ok := absent.Details["path"]; ok {
		t.Error("expected no path detail when the field is absent")
	}
	if !strings.Contains(absent.Message, "content") {
		t.Errorf("expected field name in message, got %q", absent.Message)
	}

	missing := MissingAudio("path", "/a/audio.mp3")
	if missing.Details["path"] != "/a/audio.mp3" {
		t.Errorf("expected path detail, got %v", missing.Details["path"])
	}
	if missing.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", missing.HTTPStatus)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", fmt.Errorf("boom"), ErrCodeInternal},
		{"transcription", Transcription("mlx", fmt.Errorf("x")), ErrCodeTranscription},
		{"wrapped transcode", fmt.Errorf("record 3: %w", Transcode("a.wav", nil)), ErrCodeTranscode},
		{"configuration", Configuration("venv missing"), ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsFatal_OnlyConfiguration(t *testing.T) {
	perRecord := []error{
		Staging("", fmt.Errorf("x")),
		Transcription("mlx", nil),
		Transcode("a.wav", nil),
		MissingAudio("path", "/nope"),
		Emit("audio.transcribed", nil),
		fmt.Errorf("plain"),
	}
	for _, err := range perRecord {
		if IsFatal(err) {
			t.Errorf("expected %v to be non-fatal", err)
		}
	}
	if !IsFatal(fmt.Errorf("startup: %w", Configuration("no engine"))) {
		t.Error("expected wrapped configuration error to be fatal")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Emit("t", nil)) {
		t.Error("emit errors should be retryable")
	}
	if IsRetryable(MissingAudio("path", "")) {
		t.Error("missing audio should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestToResponse(t *testing.T) {
	resp := InvalidInput("content", "not base64").ToResponse()
	if resp.Error.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Details["field"] != "content" {
		t.Errorf("expected field detail, got %v", resp.Error.Details)
	}
}

func TestToAppError_WrapsUnknown(t *testing.T) {
	cause := fmt.Errorf("boom")
	appErr := ToAppError(cause)
	if appErr.Code != ErrCodeInternal || appErr.Cause != cause {
		t.Errorf("expected internal error wrapping cause, got %+v", appErr)
	}

	orig := Timeout("transcribe")
	if ToAppError(fmt.Errorf("ctx: %w", orig)) != orig {
		t.Error("expected existing AppError to be returned as is")
	}
}
