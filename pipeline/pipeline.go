package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/artifacts"
	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/observability"
	"github.com/kbukum/lifescribe/transcription"
)

// Transcriber produces timestamped ASR chunks for a recording.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error)
}

// Diarizer produces the RTTM speaker intervals for a recording.
type Diarizer interface {
	Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error)
}

// Request describes one run.
type Request struct {
	AudioPath string
	// SessionID names the artifact directory. Empty gets a fresh UUID.
	SessionID string
	Language  string

	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Result is the output of a successful run.
type Result struct {
	SessionID string
	Segments  []alignment.Segment
	Stats     alignment.Stats

	// Chunks and RTTM are the raw provider outputs.
	Chunks    []alignment.Chunk
	RTTM      string
	Intervals []alignment.SpeakerInterval
	// Skipped counts RTTM lines with too few fields.
	Skipped int

	Duration time.Duration
}

// UnknownSegments counts segments no interval could attribute.
func (r *Result) UnknownSegments() int {
	n := 0
	for _, s := range r.Segments {
		if s.Speaker == alignment.Unknown {
			n++
		}
	}
	return n
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets where artifacts go. The default discards them.
func WithSink(s artifacts.Sink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithMetrics records run counters on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// Pipeline aligns recordings with an injected transcriber and diarizer.
type Pipeline struct {
	transcriber Transcriber
	diarizer    Diarizer
	sink        artifacts.Sink
	metrics     *observability.Metrics
	log         *logger.Logger
}

// New creates a Pipeline.
func New(t Transcriber, d Diarizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcriber: t,
		diarizer:    d,
		sink:        artifacts.Nop{},
		log:         logger.Get("pipeline"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run transcribes and diarizes req.AudioPath concurrently, then aligns the
// results. The first provider failure cancels the other call and is
// returned. Raw dumps are written before alignment so a run that fails on a
// bad chunk still leaves them behind. Artifact write failures are logged and
// do not fail the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, errors.MissingField("audio_path")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrRecording, req.AudioPath)
	observability.SetSpanAttribute(ctx, observability.AttrSessionID, req.SessionID)

	log := p.log.WithFields(logger.Fields(
		logger.FieldSessionID, req.SessionID,
		logger.FieldRecording, req.AudioPath,
	))
	log.Info("pipeline run started")

	res, err := p.run(ctx, log, req)
	elapsed := time.Since(start)
	if err != nil {
		observability.SetSpanError(ctx, err)
		p.metrics.RecordRun(ctx, "error", elapsed)
		code := string(errors.ErrCodeInternal)
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		p.metrics.RecordError(ctx, code, "pipeline")
		log.Error("pipeline run failed", logger.Fields(logger.FieldError, err.Error(), logger.FieldDuration, elapsed.Milliseconds()))
		return nil, err
	}

	res.Duration = elapsed
	p.metrics.RecordRun(ctx, "ok", elapsed)
	p.metrics.RecordAlignment(ctx, res.Stats.Chunks, res.Stats.Segments, res.UnknownSegments())
	log.Info("pipeline run completed", logger.Fields(
		logger.FieldChunks, res.Stats.Chunks,
		logger.FieldIntervals, res.Stats.Intervals,
		logger.FieldSegments, res.Stats.Segments,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *logger.Logger, req Request) (*Result, error) {
	tr, dr, err := p.collect(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{SessionID: req.SessionID, Chunks: tr.Chunks, RTTM: dr.RTTM}
	p.dump(ctx, log, artifacts.ChunksFile, func() error {
		return p.sink.WriteChunks(ctx, req.SessionID, tr.Chunks)
	})
	p.dump(ctx, log, artifacts.RTTMFile, func() error {
		return p.sink.WriteRTTM(ctx, req.SessionID, dr.RTTM)
	})

	store, err := alignment.ParseRTTMString(dr.RTTM)
	if err != nil {
		return nil, err
	}
	res.Intervals = store.Intervals()
	res.Skipped = store.Skipped()
	if res.Skipped > 0 {
		log.Warn("skipped malformed RTTM lines", logger.Fields(logger.FieldSkipped, res.Skipped))
	}

	alignCtx, span := observability.StartSpan(ctx, observability.SpanPipelineAlign)
	res.Segments, res.Stats, err = alignment.AlignWithStats(tr.Chunks, res.Intervals)
	if err != nil {
		observability.SetSpanError(alignCtx, err)
		span.End()
		return nil, err
	}
	observability.SetSpanAttribute(alignCtx, observability.AttrChunks, res.Stats.Chunks)
	observability.SetSpanAttribute(alignCtx, observability.AttrIntervals, res.Stats.Intervals)
	observability.SetSpanAttribute(alignCtx, observability.AttrSegments, res.Stats.Segments)
	observability.SetSpanAttribute(alignCtx, observability.AttrSkipped, res.Skipped)
	span.End()

	if res.Stats.AmbiguousChunks > 0 {
		log.Debug("chunks overlapped by several speakers", logger.Fields("ambiguous", res.Stats.AmbiguousChunks))
	}

	p.dump(ctx, log, artifacts.AlignedFile, func() error {
		return p.sink.WriteSegments(ctx, req.SessionID, res.Segments)
	})
	return res, nil
}

// collect runs both providers and waits for both. The first error cancels
// the shared context so the slower call stops early.
func (p *Pipeline) collect(ctx context.Context, req Request) (*transcription.Response, *diarization.Response, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		tr       *transcription.Response
		dr       *diarization.Response
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		sctx, span := observability.StartSpan(runCtx, observability.SpanPipelineTranscribe)
		defer span.End()
		resp, err := p.transcriber.Transcribe(sctx, transcription.Request{
			AudioPath: req.AudioPath,
			Language:  req.Language,
		})
		if err == nil && resp == nil {
			err = errors.ExternalServiceError("transcription", nil).WithDetail("reason", "empty response")
		}
		if err != nil {
			observability.SetSpanError(sctx, err)
			fail(err)
			return
		}
		observability.SetSpanAttribute(sctx, observability.AttrChunks, len(resp.Chunks))
		tr = resp
	}()
	go func() {
		defer wg.Done()
		sctx, span := observability.StartSpan(runCtx, observability.SpanPipelineDiarize)
		defer span.End()
		resp, err := p.diarizer.Diarize(sctx, diarization.Request{
			AudioPath:   req.AudioPath,
			NumSpeakers: req.NumSpeakers,
			MinSpeakers: req.MinSpeakers,
			MaxSpeakers: req.MaxSpeakers,
		})
		if err == nil && resp == nil {
			err = errors.ExternalServiceError("diarization", nil).WithDetail("reason", "empty response")
		}
		if err != nil {
			observability.SetSpanError(sctx, err)
			fail(err)
			return
		}
		dr = resp
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return tr, dr, nil
}

func (p *Pipeline) dump(ctx context.Context, log *logger.Logger, name string, write func() error) {
	if err := write(); err != nil {
		observability.SetSpanAttribute(ctx, "lifescribe.artifact_error", name)
		log.Warn("artifact not written", logger.Fields(logger.FieldArtifact, name, logger.FieldError, err.Error()))
	}
}
