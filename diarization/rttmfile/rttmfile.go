// Package rttmfile serves diarization from an existing RTTM file.
package rttmfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/provider"
)

// ProviderName is the registered name for the RTTM file provider.
const ProviderName = "rttmfile"

// Provider returns the contents of an RTTM file verbatim. With an empty
// Path, meeting.wav reads meeting.rttm.
type Provider struct {
	Path string
}

// NewProvider creates an RTTM file provider.
func NewProvider(path string) *Provider {
	return &Provider{Path: path}
}

// Factory returns a provider.Factory for RTTM files.
func Factory() provider.Factory[diarization.Provider] {
	return func(s provider.Settings) (diarization.Provider, error) {
		return NewProvider(s.String("path")), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable is true when a fixed path exists, or when no path is fixed.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	if p.Path == "" {
		return true
	}
	_, err := os.Stat(p.Path)
	return err == nil
}

// Diarize reads the file. The text is not validated here.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	path := p.Path
	if path == "" {
		path = strings.TrimSuffix(req.AudioPath, filepath.Ext(req.AudioPath)) + ".rttm"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidInput("rttm", err.Error()).WithCause(err)
	}
	return &diarization.Response{RTTM: string(data)}, nil
}
