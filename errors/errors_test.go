package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_DerivesRetryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeExternalService, true},
		{ErrCodeDatabaseError, true},
		{ErrCodeNotFound, false},
		{ErrCodeMissingChunkBoundary, false},
		{ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg", http.StatusTeapot)
			if err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, err.Retryable)
			}
			if err.HTTPStatus != http.StatusTeapot {
				t.Errorf("expected status %d, got %d", http.StatusTeapot, err.HTTPStatus)
			}
		})
	}
}

func TestMissingChunkBoundary(t *testing.T) {
	err := MissingChunkBoundary(4, "end")
	if err.Code != ErrCodeMissingChunkBoundary {
		t.Errorf("expected MISSING_CHUNK_BOUNDARY, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("missing boundary must not be retryable")
	}
	if err.Details["chunk"] != 4 {
		t.Errorf("expected chunk=4, got %v", err.Details["chunk"])
	}
	if err.Details["boundary"] != "end" {
		t.Errorf("expected boundary=end, got %v", err.Details["boundary"])
	}
	if !strings.Contains(err.Error(), "chunk 4") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestNotFound_EmptyID(t *testing.T) {
	err := NotFound("transcript", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no id detail when id is empty")
	}
	err = NotFound("transcript", "7")
	if err.Details["id"] != "7" {
		t.Errorf("expected id=7, got %v", err.Details["id"])
	}
}

func TestError_IncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ExternalServiceError("whisper", cause)
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestWithDetails_Merges(t *testing.T) {
	err := InvalidInput("date", "bad date").WithDetails(map[string]any{"value": "x"})
	if err.Details["field"] != "date" || err.Details["value"] != "x" {
		t.Errorf("unexpected details %v", err.Details)
	}
	err.WithDetail("line", 3)
	if err.Details["line"] != 3 {
		t.Errorf("expected line=3, got %v", err.Details["line"])
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("align: %w", MissingChunkBoundary(0, "start"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError through wrapping")
	}
	if appErr.Code != ErrCodeMissingChunkBoundary {
		t.Errorf("unexpected code %s", appErr.Code)
	}
	if !HasCode(wrapped, ErrCodeMissingChunkBoundary) {
		t.Error("HasCode should match wrapped code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeInternal) {
		t.Error("HasCode should be false for plain errors")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Timeout("diarize")) {
		t.Error("timeout should be retryable")
	}
	if IsRetryable(InvalidVTT(1, "x")) {
		t.Error("invalid vtt should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestToResponse(t *testing.T) {
	resp := DuplicateRecording("abc", "s1").ToResponse()
	if resp.Error.Code != ErrCodeDuplicateRecording {
		t.Errorf("unexpected code %s", resp.Error.Code)
	}
	if resp.Error.Details["hash"] != "abc" {
		t.Errorf("expected hash detail, got %v", resp.Error.Details)
	}
}
