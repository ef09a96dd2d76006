package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/observability"
	"github.com/kbukum/lifescribe/transcription"
)

type fakeTranscriber struct {
	chunks []alignment.Chunk
	err    error
	block  bool
	got    transcription.Request
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f.got = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &transcription.Response{Chunks: f.chunks}, nil
}

type fakeDiarizer struct {
	rttm  string
	err   error
	block bool
	got   diarization.Request
}

func (f *fakeDiarizer) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	f.got = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &diarization.Response{RTTM: f.rttm}, nil
}

type recordingSink struct {
	mu       sync.Mutex
	sessions []string
	chunks   []alignment.Chunk
	rttm     string
	segments []alignment.Segment
	written  []string
	err      error
}

func (s *recordingSink) WriteChunks(_ context.Context, session string, chunks []alignment.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.chunks = chunks
	s.written = append(s.written, "chunks")
	return s.err
}

func (s *recordingSink) WriteRTTM(_ context.Context, session string, rttm string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.rttm = rttm
	s.written = append(s.written, "rttm")
	return s.err
}

func (s *recordingSink) WriteSegments(_ context.Context, session string, segments []alignment.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	s.segments = segments
	s.written = append(s.written, "segments")
	return s.err
}

const twoSpeakers = `SPEAKER audio 1 0.000 2.000 <NA> <NA> SPEAKER_00 <NA> <NA>
SPEAKER audio 1 2.500 3.000 <NA> <NA> SPEAKER_01 <NA> <NA>
`

func chunks() []alignment.Chunk {
	return []alignment.Chunk{
		{Timestamp: alignment.NewTimestamp(0, 1), Text: " Hello"},
		{Timestamp: alignment.NewTimestamp(1, 1.8), Text: " there."},
		{Timestamp: alignment.NewTimestamp(2.6, 4), Text: " Hi."},
		{Timestamp: alignment.NewTimestamp(9, 10), Text: " Bye."},
	}
}

func TestRun(t *testing.T) {
	tr := &fakeTranscriber{chunks: chunks()}
	dr := &fakeDiarizer{rttm: twoSpeakers}
	sink := &recordingSink{}
	p := New(tr, dr, WithSink(sink))

	res, err := p.Run(context.Background(), Request{
		AudioPath:   "meeting.wav",
		SessionID:   "s-1",
		Language:    "en",
		NumSpeakers: 2,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []alignment.Segment{
		{Speaker: "SPEAKER_00", Span: alignment.TimeSpan{Start: 0, End: 1.8}, Text: " Hello there."},
		{Speaker: "SPEAKER_01", Span: alignment.TimeSpan{Start: 2.6, End: 4}, Text: " Hi."},
		{Speaker: alignment.Unknown, Span: alignment.TimeSpan{Start: 9, End: 10}, Text: " Bye."},
	}
	if len(res.Segments) != len(want) {
		t.Fatalf("got %d segments, want %d: %+v", len(res.Segments), len(want), res.Segments)
	}
	for i := range want {
		if res.Segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, res.Segments[i], want[i])
		}
	}

	if res.SessionID != "s-1" || res.Stats.Chunks != 4 || res.Stats.Intervals != 2 || res.Stats.Segments != 3 {
		t.Errorf("unexpected result header %+v", res)
	}
	if res.UnknownSegments() != 1 {
		t.Errorf("UnknownSegments() = %d, want 1", res.UnknownSegments())
	}
	if tr.got.AudioPath != "meeting.wav" || tr.got.Language != "en" {
		t.Errorf("transcriber got %+v", tr.got)
	}
	if dr.got.AudioPath != "meeting.wav" || dr.got.NumSpeakers != 2 {
		t.Errorf("diarizer got %+v", dr.got)
	}

	if len(sink.written) != 3 || sink.written[2] != "segments" {
		t.Errorf("unexpected artifact order %v", sink.written)
	}
	for _, s := range sink.sessions {
		if s != "s-1" {
			t.Errorf("artifact written for session %q", s)
		}
	}
	if sink.rttm != twoSpeakers || len(sink.chunks) != 4 || len(sink.segments) != 3 {
		t.Error("artifacts do not match the run")
	}
}

func TestRun_GeneratesSessionID(t *testing.T) {
	p := New(&fakeTranscriber{}, &fakeDiarizer{})
	res, err := p.Run(context.Background(), Request{AudioPath: "a.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.SessionID) != 36 {
		t.Errorf("expected a uuid session, got %q", res.SessionID)
	}
	if len(res.Segments) != 0 {
		t.Errorf("expected no segments, got %+v", res.Segments)
	}
}

func TestRun_RequiresAudioPath(t *testing.T) {
	p := New(&fakeTranscriber{}, &fakeDiarizer{})
	_, err := p.Run(context.Background(), Request{})
	if !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected MISSING_FIELD, got %v", err)
	}
}

func TestRun_FirstErrorCancelsSibling(t *testing.T) {
	tests := []struct {
		name string
		tr   *fakeTranscriber
		dr   *fakeDiarizer
		code errors.ErrorCode
	}{
		{
			name: "transcriber fails",
			tr:   &fakeTranscriber{err: errors.ExternalServiceError("whisper", stderrors.New("boom"))},
			dr:   &fakeDiarizer{block: true},
			code: errors.ErrCodeExternalService,
		},
		{
			name: "diarizer fails",
			tr:   &fakeTranscriber{block: true},
			dr:   &fakeDiarizer{err: errors.Unauthorized("bad token")},
			code: errors.ErrCodeUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			done := make(chan error, 1)
			go func() {
				_, err := New(tt.tr, tt.dr, WithSink(sink)).Run(context.Background(), Request{AudioPath: "a.wav"})
				done <- err
			}()

			select {
			case err := <-done:
				if !errors.HasCode(err, tt.code) {
					t.Errorf("expected %s, got %v", tt.code, err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("blocked provider was not cancelled")
			}
			if len(sink.written) != 0 {
				t.Errorf("no artifacts expected on provider failure, got %v", sink.written)
			}
		})
	}
}

func TestRun_MissingBoundaryFailsRun(t *testing.T) {
	start := 3.0
	bad := append(chunks(), alignment.Chunk{Timestamp: alignment.Timestamp{&start, nil}, Text: " cut"})
	sink := &recordingSink{}
	p := New(&fakeTranscriber{chunks: bad}, &fakeDiarizer{rttm: twoSpeakers}, WithSink(sink))

	_, err := p.Run(context.Background(), Request{AudioPath: "a.wav", SessionID: "s"})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeMissingChunkBoundary {
		t.Fatalf("expected MISSING_CHUNK_BOUNDARY, got %v", err)
	}
	if appErr.Details["chunk"] != 4 || appErr.Details["boundary"] != "end" {
		t.Errorf("unexpected details %v", appErr.Details)
	}
	if len(sink.written) != 2 || sink.written[0] != "chunks" || sink.written[1] != "rttm" {
		t.Errorf("raw dumps should be written before alignment, got %v", sink.written)
	}
}

func TestRun_RTTM(t *testing.T) {
	t.Run("short lines are skipped", func(t *testing.T) {
		rttm := "SPEAKER audio 1\n\n" + twoSpeakers
		res, err := New(&fakeTranscriber{chunks: chunks()}, &fakeDiarizer{rttm: rttm}).
			Run(context.Background(), Request{AudioPath: "a.wav"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Skipped != 1 || len(res.Intervals) != 2 {
			t.Errorf("skipped = %d, intervals = %d", res.Skipped, len(res.Intervals))
		}
	})

	t.Run("non-numeric start is an error", func(t *testing.T) {
		rttm := "SPEAKER audio 1 x 1.0 <NA> <NA> A <NA> <NA>\n"
		_, err := New(&fakeTranscriber{chunks: chunks()}, &fakeDiarizer{rttm: rttm}).
			Run(context.Background(), Request{AudioPath: "a.wav"})
		if !errors.HasCode(err, errors.ErrCodeInvalidRTTMRecord) {
			t.Errorf("expected INVALID_RTTM_RECORD, got %v", err)
		}
	})
}

func TestRun_SinkFailureIsNotFatal(t *testing.T) {
	sink := &recordingSink{err: errors.StorageError("write", stderrors.New("disk full"))}
	res, err := New(&fakeTranscriber{chunks: chunks()}, &fakeDiarizer{rttm: twoSpeakers}, WithSink(sink)).
		Run(context.Background(), Request{AudioPath: "a.wav"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Segments) != 3 || len(sink.written) != 3 {
		t.Errorf("segments = %d, writes = %v", len(res.Segments), sink.written)
	}
}

func TestRun_EmptyResponseIsError(t *testing.T) {
	_, err := New(nilTranscriber{}, &fakeDiarizer{}).Run(context.Background(), Request{AudioPath: "a.wav"})
	if !errors.HasCode(err, errors.ErrCodeExternalService) {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

type nilTranscriber struct{}

func (nilTranscriber) Transcribe(context.Context, transcription.Request) (*transcription.Response, error) {
	return nil, nil
}

func TestRun_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	m, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	p := New(&fakeTranscriber{chunks: chunks()}, &fakeDiarizer{rttm: twoSpeakers}, WithMetrics(m))
	if _, err := p.Run(context.Background(), Request{AudioPath: "a.wav"}); err != nil {
		t.Fatal(err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[md.Name] += dp.Value
				}
			}
		}
	}
	want := map[string]int64{
		observability.MetricChunks:          4,
		observability.MetricSegments:        3,
		observability.MetricUnknownSegments: 1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}
