package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/auth"
	"github.com/kbukum/lifescribe/bulk"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/ingest"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/media"
	"github.com/kbukum/lifescribe/pipeline"
	"github.com/kbukum/lifescribe/transcription"
	"github.com/kbukum/lifescribe/transcription/chunkfile"
	"github.com/kbukum/lifescribe/validation"
)

// Align aligns a dumped chunk file with an RTTM file. No backend is called.
func Align(chunksPath, rttmPath string) ([]alignment.Segment, alignment.Stats, error) {
	chunks, err := chunkfile.Load(chunksPath)
	if err != nil {
		return nil, alignment.Stats{}, err
	}
	f, err := os.Open(rttmPath)
	if err != nil {
		return nil, alignment.Stats{}, errors.InvalidInput("rttm", err.Error()).WithCause(err)
	}
	defer f.Close()

	intervals, err := alignment.ParseRTTM(f)
	if err != nil {
		return nil, alignment.Stats{}, err
	}
	if n := intervals.Skipped(); n > 0 {
		logger.Get("alignment").Warn("skipped short rttm lines", logger.Fields(logger.FieldPath, rttmPath, "skipped", n))
	}
	return alignment.AlignWithStats(chunks, intervals.Intervals())
}

// TranscribeRequest is one recording for Transcribe.
type TranscribeRequest struct {
	AudioPath string
	Session   uuid.UUID
	// Date is the recording date stored with persisted rows. Zero means today.
	Date     time.Time
	Language string

	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int

	// Persist stores the segments and the recording. It needs UseDatabase.
	Persist bool
}

// TranscribeResult is the pipeline result plus what was stored.
type TranscribeResult struct {
	*pipeline.Result
	Stored *ingest.Result
}

// Transcribe runs the pipeline on one recording and optionally stores it.
func (a *App) Transcribe(ctx context.Context, pipe *pipeline.Pipeline, req TranscribeRequest) (*TranscribeResult, error) {
	var svc *ingest.Service
	var hash string
	if req.Persist {
		var err error
		if svc, err = a.Ingester(); err != nil {
			return nil, err
		}
		// Hash before the backends run so a duplicate fails fast.
		if hash, err = media.HashFile(req.AudioPath); err != nil {
			return nil, err
		}
		if err := a.checkDuplicate(ctx, hash); err != nil {
			return nil, err
		}
	}

	pr := pipeline.Request{
		AudioPath:   req.AudioPath,
		Language:    req.Language,
		NumSpeakers: req.NumSpeakers,
		MinSpeakers: req.MinSpeakers,
		MaxSpeakers: req.MaxSpeakers,
	}
	if req.Session != uuid.Nil {
		pr.SessionID = req.Session.String()
	}
	res, err := pipe.Run(ctx, pr)
	if err != nil {
		return nil, err
	}
	out := &TranscribeResult{Result: res}
	if !req.Persist {
		return out, nil
	}

	stored, err := store(ctx, svc, res, req.Date, bulk.Item{Path: req.AudioPath, Hash: hash})
	if err != nil {
		return nil, err
	}
	out.Stored = stored
	return out, nil
}

func (a *App) checkDuplicate(ctx context.Context, hash string) error {
	st, err := a.Store()
	if err != nil {
		return err
	}
	rec, err := st.FindRecording(ctx, hash)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return nil
		}
		return err
	}
	return errors.DuplicateRecording(hash, rec.SessionID.String())
}

// store persists a pipeline result together with the recording it came from.
func store(ctx context.Context, svc *ingest.Service, res *pipeline.Result, date time.Time, item bulk.Item) (*ingest.Result, error) {
	session, err := uuid.Parse(res.SessionID)
	if err != nil {
		return nil, errors.InvalidFormat("session_id", "UUID").WithCause(err)
	}
	rec := &ingest.Recording{
		Path:     item.Path,
		Hash:     item.Hash,
		Duration: recordingDuration(item.Path, res.Chunks),
	}
	return svc.IngestSegments(ctx, session, date, res.Segments, rec)
}

// recordingDuration reads the WAV header, falling back to the last chunk end
// for other containers.
func recordingDuration(path string, chunks []alignment.Chunk) float64 {
	if d, err := media.ProbeDuration(path); err == nil {
		return d.Seconds()
	}
	return transcription.LastEnd(chunks)
}

// Process returns the bulk ProcessFunc: run the pipeline, then store the
// segments with the recording.
func Process(pipe *pipeline.Pipeline, svc *ingest.Service) bulk.ProcessFunc {
	return func(ctx context.Context, item bulk.Item) (string, error) {
		res, err := pipe.Run(ctx, pipeline.Request{AudioPath: item.Path})
		if err != nil {
			return "", err
		}
		if _, err := store(ctx, svc, res, time.Time{}, item); err != nil {
			return "", err
		}
		return res.SessionID, nil
	}
}

// Bulk processes every recording in cfg.Dir. Dry runs print the plan to
// out and need neither backends nor the database.
func (a *App) Bulk(ctx context.Context, cfg bulk.Config, out io.Writer) (*bulk.Report, error) {
	if cfg.DryRun {
		return bulk.NewRunner(cfg, nil, bulk.WithOutput(out)).Run(ctx)
	}

	st, err := a.Store()
	if err != nil {
		return nil, err
	}
	pipe, err := a.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	svc := ingest.NewService(st, a.Cfg.Ingest)
	runner := bulk.NewRunner(cfg, Process(pipe, svc), bulk.WithLookup(st), bulk.WithOutput(out))
	return runner.Run(ctx)
}

// IngestVTT stores a WebVTT transcript.
func (a *App) IngestVTT(ctx context.Context, path string, date time.Time, session uuid.UUID) (*ingest.Result, error) {
	svc, err := a.Ingester()
	if err != nil {
		return nil, err
	}
	return svc.IngestVTT(ctx, path, date, session)
}

// Rename identifies a speaker label within one conversation.
type Rename struct {
	Session      string `validate:"required,uuid"`
	Conversation int    `validate:"gte=1"`
	From         string `validate:"required"`
	To           string `validate:"speaker"`
}

// RenameSpeaker relabels r.From to r.To and returns the number of rows
// changed.
func (a *App) RenameSpeaker(ctx context.Context, r Rename) (int64, error) {
	if err := validation.Validate(r); err != nil {
		return 0, err
	}
	st, err := a.Store()
	if err != nil {
		return 0, err
	}
	return st.RenameSpeaker(ctx, uuid.MustParse(r.Session), r.Conversation, r.From, r.To)
}

// Token mints an API bearer token for subject.
func (a *App) Token(subject string) (string, error) {
	if subject == "" {
		return "", errors.MissingField("subject")
	}
	svc, err := auth.NewService(a.Cfg.API.Auth)
	if err != nil {
		return "", err
	}
	tok, err := svc.Generate(subject)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}
