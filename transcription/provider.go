package transcription

import (
	"context"

	"github.com/kbukum/lifescribe/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Transcribe recognizes the audio and returns its timestamped chunks.
	Transcribe(ctx context.Context, req Request) (*Response, error)
}
