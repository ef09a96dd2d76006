// Package transcription defines the speech-to-text backend interface and the
// request and response types the alignment pipeline consumes.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//   - transcription/whisperx: the whisperx command line tool
//   - transcription/chunkfile: a previously dumped audio.json
//
// # Usage
//
//	mgr := transcription.NewManager()
//	mgr.Register(whisper.ProviderName, whisper.Factory())
//	_ = mgr.Initialize(whisper.ProviderName, settings)
//	p, _ := mgr.Get(ctx)
//	resp, err := p.Transcribe(ctx, transcription.Request{AudioPath: "meeting.wav"})
package transcription
