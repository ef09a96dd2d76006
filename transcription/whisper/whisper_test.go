package whisper

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/resilience"
	"github.com/kbukum/lifescribe/security"
	"github.com/kbukum/lifescribe/security/tlstest"
	"github.com/kbukum/lifescribe/transcription"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastConfig(url string) Config {
	return Config{
		URL: url,
		Guard: provider.GuardConfig{
			Retry: resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		},
	}
}

func newProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	p, err := NewProvider(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranscribe_Chunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("model"); got != "small" {
			t.Errorf("expected model small, got %q", got)
		}
		if got := r.FormValue("timestamps"); got != "word" {
			t.Errorf("expected word timestamps, got %q", got)
		}
		if _, hdr, err := r.FormFile("audio"); err != nil || hdr.Filename != "meeting.wav" {
			t.Errorf("expected audio file meeting.wav, got %v %v", hdr, err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" Hi there","language":"en","chunks":[
			{"timestamp":[0.0,0.5],"text":" Hi"},
			{"timestamp":[0.5,null],"text":" there"}]}`))
	}))
	defer srv.Close()

	p := newProvider(t, fastConfig(srv.URL))
	resp, err := p.Transcribe(context.Background(), transcription.Request{
		AudioPath:   writeAudio(t),
		Model:       "small",
		Granularity: transcription.GranularityWord,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(resp.Chunks))
	}
	if resp.Chunks[1].Timestamp[1] != nil {
		t.Error("null end must be preserved")
	}
	if resp.Duration != 0.5 || resp.Language != "en" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestTranscribe_SegmentsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text": "a b",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.0, "text": "a"},
				{"start": 1.0, "end": 2.5, "text": " b"},
			},
		})
	}))
	defer srv.Close()

	resp, err := newProvider(t, fastConfig(srv.URL)).Transcribe(context.Background(),
		transcription.Request{AudioPath: writeAudio(t)})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Chunks) != 2 || *resp.Chunks[1].Timestamp[0] != 1.0 || resp.Duration != 2.5 {
		t.Errorf("unexpected chunks %+v", resp)
	}
}

func TestTranscribe_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "cuda out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newProvider(t, fastConfig(srv.URL)).Transcribe(context.Background(),
		transcription.Request{AudioPath: writeAudio(t)})
	if !errors.HasCode(err, errors.ErrCodeExternalService) {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestTranscribe_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unsupported codec", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newProvider(t, fastConfig(srv.URL)).Transcribe(context.Background(),
		transcription.Request{AudioPath: writeAudio(t)})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	_, err := newProvider(t, Config{}).Transcribe(context.Background(),
		transcription.Request{AudioPath: filepath.Join(t.TempDir(), "nope.wav")})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	p := newProvider(t, Config{URL: srv.URL})
	if !p.IsAvailable(context.Background()) {
		t.Error("expected available")
	}
	srv.Close()
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable after close")
	}
}

func TestFactory(t *testing.T) {
	p, err := Factory()(provider.Settings{"url": "http://whisper:9000", "timeout": "2m", "granularity": "word"})
	if err != nil {
		t.Fatal(err)
	}
	wp := p.(*Provider)
	if wp.cfg.URL != "http://whisper:9000" || wp.cfg.Timeout != 2*time.Minute {
		t.Errorf("unexpected config %+v", wp.cfg)
	}
	if wp.cfg.Model != defaultWhisperModel || wp.cfg.Granularity != transcription.GranularityWord {
		t.Errorf("unexpected defaults %+v", wp.cfg)
	}
}

func TestTranscribe_TLSSidecar(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":" Hi","chunks":[{"timestamp":[0.0,0.5],"text":" Hi"}]}`))
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.Server}}
	srv.StartTLS()
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.TLS = security.TLSConfig{CAFile: certs.CAFile}
	resp, err := newProvider(t, cfg).Transcribe(context.Background(), transcription.Request{AudioPath: writeAudio(t)})
	if err != nil {
		t.Fatalf("transcribe over TLS: %v", err)
	}
	if len(resp.Chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(resp.Chunks))
	}

	// Without the CA the handshake fails.
	_, err = newProvider(t, fastConfig(srv.URL)).Transcribe(context.Background(), transcription.Request{AudioPath: writeAudio(t)})
	if !errors.HasCode(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("expected CONNECTION_FAILED without the CA, got %v", err)
	}
}

func TestNewProvider_InvalidTLS(t *testing.T) {
	_, err := NewProvider(Config{TLS: security.TLSConfig{CertFile: "client.pem"}})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := Factory()(provider.Settings{"tls": map[string]any{"ca_file": "/nonexistent/ca.pem"}}); err == nil {
		t.Error("expected factory error for unreadable CA")
	}
}
