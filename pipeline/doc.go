// Package pipeline runs one recording end to end: transcription and
// diarization in parallel, RTTM parsing, alignment, and the diagnostic
// artifact dumps.
//
// The providers are injected. Anything with a Transcribe method fits
// Transcriber and anything with a Diarize method fits Diarizer, so the
// backends in transcription/ and diarization/ plug in directly and tests use
// plain fakes.
//
//	p := pipeline.New(whisper, pyannote,
//	    pipeline.WithSink(artifacts.NewStorageSink(store)),
//	    pipeline.WithMetrics(metrics),
//	)
//	res, err := p.Run(ctx, pipeline.Request{AudioPath: "meeting.wav"})
package pipeline
