package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: FormatJSON}
	return NewWithWriter(cfg, "lifescribe", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "loud", Format: FormatJSON, Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInfo_WritesFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.Info("aligned", Fields(FieldSegments, 3, FieldChunks, 9))

	out := decodeLine(t, buf)
	if out["message"] != "aligned" {
		t.Errorf("expected message 'aligned', got %v", out["message"])
	}
	if out[FieldSegments] != float64(3) {
		t.Errorf("expected segments=3, got %v", out[FieldSegments])
	}
	if out[FieldService] != "lifescribe" {
		t.Errorf("expected service field, got %v", out[FieldService])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestWithComponentAndError(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithComponent("pipeline").WithError(errors.New("boom")).Error("failed")

	out := decodeLine(t, buf)
	if out[FieldComponent] != "pipeline" {
		t.Errorf("expected component=pipeline, got %v", out[FieldComponent])
	}
	if out["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", out["error"])
	}
}

func TestWithContext(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	ctx := ContextWith(context.Background(), ContextKeySessionID, "abc")
	ctx = ContextWith(ctx, ContextKeyRecording, "a.wav")
	l.WithContext(ctx).Info("ctx")

	out := decodeLine(t, buf)
	if out[FieldSessionID] != "abc" {
		t.Errorf("expected session_id=abc, got %v", out[FieldSessionID])
	}
	if out[FieldRecording] != "a.wav" {
		t.Errorf("expected recording=a.wav, got %v", out[FieldRecording])
	}
	if _, ok := out[FieldRequestID]; ok {
		t.Error("request_id should be absent when not in context")
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.WithFields(map[string]interface{}{FieldProvider: "whisper"}).Debug("call")

	out := decodeLine(t, buf)
	if out[FieldProvider] != "whisper" {
		t.Errorf("expected provider=whisper, got %v", out[FieldProvider])
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: FormatConsole, NoColor: true}, "lifescribe", &buf)
	l.Info("hello", Fields("speaker", "SPEAKER_00"))

	got := buf.String()
	if !strings.Contains(got, "[LIF][INF]") {
		t.Errorf("expected service and level tag, got %q", got)
	}
	if !strings.Contains(got, "speaker:SPEAKER_00") {
		t.Errorf("expected field rendering, got %q", got)
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("diarize", errors.New("timeout"))
	if ef[FieldOperation] != "diarize" || ef[FieldError] != "timeout" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("align", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{Output: "file"}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.FilePath != "lifescribe.log" {
		t.Errorf("expected default file path, got %q", cfg.FilePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: FormatJSON, Output: "stdout"}},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "syslog"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	defer Reset()
	l, buf := newJSONLogger(t, "debug")
	Register("bulk", l)
	Get("bulk").Info("from registry")
	if !strings.Contains(buf.String(), "from registry") {
		t.Errorf("expected registered logger to be used, got %q", buf.String())
	}

	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}
