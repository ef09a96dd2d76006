package app

import (
	"context"

	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/diarization/pyannote"
	"github.com/kbukum/lifescribe/diarization/rttmfile"
	"github.com/kbukum/lifescribe/pipeline"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/transcription"
	"github.com/kbukum/lifescribe/transcription/chunkfile"
	"github.com/kbukum/lifescribe/transcription/whisper"
	"github.com/kbukum/lifescribe/transcription/whisperx"
)

// NewTranscription builds the transcription manager for cfg. The configured
// backend is tried first, then the fallbacks.
func NewTranscription(cfg ProviderConfig) (*provider.Manager[transcription.Provider], error) {
	mgr := transcription.NewManager(transcription.WithPriority(cfg.Order()...))
	mgr.Register(whisper.ProviderName, whisper.Factory())
	mgr.Register(whisperx.ProviderName, whisperx.Factory())
	mgr.Register(chunkfile.ProviderName, chunkfile.Factory())

	for _, name := range cfg.Order() {
		if err := mgr.Initialize(name, cfg.Settings); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

// NewDiarization builds the diarization manager for cfg.
func NewDiarization(cfg ProviderConfig) (*provider.Manager[diarization.Provider], error) {
	mgr := diarization.NewManager(cfg.Order()...)
	mgr.Register(pyannote.ProviderName, pyannote.Factory())
	mgr.Register(rttmfile.ProviderName, rttmfile.Factory())

	for _, name := range cfg.Order() {
		if err := mgr.Initialize(name, cfg.Settings); err != nil {
			return nil, err
		}
	}
	return mgr, nil
}

// transcriber picks a backend for every call so a sidecar that comes back
// is used again.
type transcriber struct {
	mgr *provider.Manager[transcription.Provider]
}

var _ pipeline.Transcriber = transcriber{}

func (t transcriber) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	p, err := t.mgr.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Transcribe(ctx, req)
}

type diarizer struct {
	mgr *provider.Manager[diarization.Provider]
}

var _ pipeline.Diarizer = diarizer{}

func (d diarizer) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	p, err := d.mgr.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Diarize(ctx, req)
}
