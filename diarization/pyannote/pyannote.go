// Package pyannote diarizes through a pyannote.audio HTTP sidecar.
package pyannote

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
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/security"
	"github.com/kbukum/lifescribe/version"
)

const (
	// ProviderName is the registered name for the Pyannote provider.
	ProviderName = "pyannote"

	defaultPyannoteURL     = "http://localhost:8388"
	defaultPyannoteModel   = "pyannote/speaker-diarization-3.1"
	defaultPyannoteTimeout = 30 * time.Minute
)

// Config holds configuration for the Pyannote diarization provider.
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	// Model is the pretrained pipeline the sidecar should load.
	Model string `mapstructure:"model"`
	// HFToken authenticates the sidecar against the Hugging Face hub. It is
	// sent as a bearer token.
	HFToken string               `mapstructure:"hf_token"`
	Timeout time.Duration        `mapstructure:"timeout"`
	Guard   provider.GuardConfig `mapstructure:"guard"`
	TLS     security.TLSConfig   `mapstructure:"tls"`
}

// Provider implements diarization.Provider using the Pyannote HTTP sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
	guard  *provider.Guard
}

// NewProvider creates a new Pyannote diarization provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPyannoteURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultPyannoteModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultPyannoteTimeout
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

// Factory returns a provider.Factory that creates Pyannote providers from
// the diarization config section.
func Factory() provider.Factory[diarization.Provider] {
	return func(s provider.Settings) (diarization.Provider, error) {
		p, err := NewProvider(Config{
			BaseURL: s.String("base_url"),
			Model:   s.String("model"),
			HFToken: s.String("hf_token"),
			Timeout: s.Duration("timeout"),
			TLS:     s.TLS("tls"),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Pyannote sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
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

// Diarize uploads the audio and renders the sidecar's segments as RTTM.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, errors.InvalidInput("audio_path", err.Error()).WithCause(err)
	}
	return provider.Call(ctx, p.guard, func(ctx context.Context) (*diarization.Response, error) {
		return p.diarize(ctx, req, audioData)
	})
}

func (p *Provider) diarize(ctx context.Context, req diarization.Request, audioData []byte) (*diarization.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	fields := [][2]string{{"model", p.cfg.Model}}
	for _, f := range []struct {
		name string
		n    int
	}{
		{"num_speakers", req.NumSpeakers},
		{"min_speakers", req.MinSpeakers},
		{"max_speakers", req.MaxSpeakers},
	} {
		if f.n > 0 {
			fields = append(fields, [2]string{f.name, strconv.Itoa(f.n)})
		}
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if p.cfg.HFToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.HFToken)
	}

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
		cause := fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, errors.Unauthorized("hugging face token rejected").WithCause(cause)
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, errors.ExternalServiceError(ProviderName, cause)
		default:
			return nil, errors.InvalidInput("audio", string(body)).WithCause(cause)
		}
	}

	var result pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("decode diarization response: %w", err))
	}
	if result.Error != "" {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("diarization error: %s", result.Error))
	}

	return toDiarizationResponse(&result, req.AudioPath)
}

// --- internal Pyannote API types ---

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func toDiarizationResponse(resp *pyannoteResponse, audioPath string) (*diarization.Response, error) {
	intervals := make([]alignment.SpeakerInterval, len(resp.Segments))
	for i, seg := range resp.Segments {
		intervals[i] = alignment.SpeakerInterval{
			Span:    alignment.TimeSpan{Start: seg.StartTime, End: seg.EndTime},
			Speaker: seg.SpeakerID,
		}
	}

	fileID := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	var rttm strings.Builder
	if err := alignment.FormatRTTM(&rttm, fileID, intervals); err != nil {
		return nil, fmt.Errorf("render rttm: %w", err)
	}
	return &diarization.Response{
		RTTM:        rttm.String(),
		NumSpeakers: resp.NumSpeakers,
	}, nil
}
