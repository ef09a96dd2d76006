// Package chunkfile replays a transcript that an earlier run dumped as
// audio.json, so alignment can be rerun without the recognizer.
package chunkfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/transcription"
)

// ProviderName is the registered name for the chunk file provider.
const ProviderName = "chunkfile"

// Provider reads chunks from a JSON file. With an empty Path the file is
// looked up next to the audio: meeting.wav reads meeting.json.
type Provider struct {
	Path string
}

// NewProvider creates a chunk file provider.
func NewProvider(path string) *Provider {
	return &Provider{Path: path}
}

// Factory returns a provider.Factory for chunk files.
func Factory() provider.Factory[transcription.Provider] {
	return func(s provider.Settings) (transcription.Provider, error) {
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

// Transcribe loads the chunk list.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	path := p.resolve(req.AudioPath)
	chunks, err := Load(path)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, c := range chunks {
		text.WriteString(c.Text)
	}
	return &transcription.Response{
		Text:     text.String(),
		Chunks:   chunks,
		Duration: transcription.LastEnd(chunks),
	}, nil
}

func (p *Provider) resolve(audioPath string) string {
	if p.Path != "" {
		return p.Path
	}
	if strings.EqualFold(filepath.Ext(audioPath), ".json") {
		return audioPath
	}
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
}

// Load decodes a JSON array of chunks from path.
func Load(path string) ([]alignment.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidInput("chunks", err.Error()).WithCause(err)
	}
	var chunks []alignment.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, errors.InvalidFormat("chunks", "JSON array of {timestamp, text}").
			WithCause(fmt.Errorf("decode %s: %w", path, err))
	}
	if chunks == nil {
		chunks = []alignment.Chunk{}
	}
	return chunks, nil
}
