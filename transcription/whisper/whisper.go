// Package whisper transcribes through a faster-whisper HTTP sidecar.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/security"
	"github.com/kbukum/lifescribe/transcription"
	"github.com/kbukum/lifescribe/version"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "large-v3"
	defaultWhisperTimeout = 30 * time.Minute
)

// Config holds configuration for the Whisper transcription provider.
type Config struct {
	URL         string                    `mapstructure:"url"`
	Model       string                    `mapstructure:"model"`
	Language    string                    `mapstructure:"language"`
	Device      string                    `mapstructure:"device"`
	Granularity transcription.Granularity `mapstructure:"granularity"`
	Timeout     time.Duration             `mapstructure:"timeout"`
	Guard       provider.GuardConfig      `mapstructure:"guard"`
	TLS         security.TLSConfig        `mapstructure:"tls"`
}

// Provider implements transcription.Provider using the sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
	guard  *provider.Guard
}

// NewProvider creates a new Whisper transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Granularity == "" {
		cfg.Granularity = transcription.GranularitySegment
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	transport, err := cfg.TLS.Transport()
	if err != nil {
		return nil, errors.InvalidInput("tls", err.Error()).WithCause(err)
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		guard:  provider.NewGuard(ProviderName, cfg.Guard),
	}, nil
}

// Factory returns a provider.Factory building the sidecar client from its
// config section.
func Factory() provider.Factory[transcription.Provider] {
	return func(s provider.Settings) (transcription.Provider, error) {
		p, err := NewProvider(Config{
			URL:         s.String("url"),
			Model:       s.String("model"),
			Language:    s.String("language"),
			Device:      s.String("device"),
			Granularity: transcription.Granularity(s.String("granularity")),
			Timeout:     s.Duration("timeout"),
			TLS:         s.TLS("tls"),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the sidecar answers its health endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Transcribe uploads the audio and returns the recognized chunks.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, errors.InvalidInput("audio_path", err.Error()).WithCause(err)
	}
	return provider.Call(ctx, p.guard, func(ctx context.Context) (*transcription.Response, error) {
		return p.transcribe(ctx, req, audioData)
	})
}

func (p *Provider) transcribe(ctx context.Context, req transcription.Request, audioData []byte) (*transcription.Response, error) {
	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	granularity := p.cfg.Granularity
	if req.Granularity != "" {
		granularity = req.Granularity
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	fields := [][2]string{{"model", model}, {"timestamps", string(granularity)}}
	if lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	if p.cfg.Device != "" {
		fields = append(fields, [2]string{"device", p.cfg.Device})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ConnectionFailed(ProviderName).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, errors.ExternalServiceError(ProviderName, cause)
		}
		return nil, errors.InvalidInput("audio", string(body)).WithCause(cause)
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("decode whisper response: %w", err))
	}

	return toTranscriptionResponse(&result), nil
}

// --- internal sidecar response types ---

// whisperResponse accepts both the pipeline style "chunks" list and the
// plain "segments" list older sidecars return.
type whisperResponse struct {
	Text     string            `json:"text"`
	Chunks   []alignment.Chunk `json:"chunks"`
	Segments []whisperSegment  `json:"segments"`
	Language string            `json:"language"`
}

type whisperSegment struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

func toTranscriptionResponse(resp *whisperResponse) *transcription.Response {
	chunks := resp.Chunks
	if len(chunks) == 0 && len(resp.Segments) > 0 {
		chunks = make([]alignment.Chunk, len(resp.Segments))
		for i, seg := range resp.Segments {
			chunks[i] = alignment.Chunk{
				Timestamp: alignment.Timestamp{seg.Start, seg.End},
				Text:      seg.Text,
			}
		}
	}
	if chunks == nil {
		chunks = []alignment.Chunk{}
	}

	return &transcription.Response{
		Text:     resp.Text,
		Chunks:   chunks,
		Duration: transcription.LastEnd(chunks),
		Language: resp.Language,
	}
}
