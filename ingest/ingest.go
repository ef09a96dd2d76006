// Package ingest loads transcripts into the database, either from a WebVTT
// file produced elsewhere or from an aligned run.
package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/transcripts"
	"github.com/kbukum/lifescribe/vtt"
)

// DefaultInsertedDir is where ingested VTT files are moved.
const DefaultInsertedDir = "./transcriptions/inserted"

// Config is the ingest section of the lifescribe config.
type Config struct {
	InsertedDir     string        `mapstructure:"inserted_dir" json:"inserted_dir"`
	ConversationGap time.Duration `mapstructure:"conversation_gap" json:"conversation_gap"`
	// KeepSource leaves the VTT file where it is after ingestion.
	KeepSource bool `mapstructure:"keep_source" json:"keep_source"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.InsertedDir == "" {
		c.InsertedDir = DefaultInsertedDir
	}
}

// Saver persists one session of rows.
type Saver interface {
	SaveSession(ctx context.Context, rows []transcripts.Transcript, rec *transcripts.Recording) error
}

// Result reports what an ingestion wrote.
type Result struct {
	SessionID     uuid.UUID
	Rows          int
	Conversations int
	// MovedTo is the new location of the source file, empty when it stayed.
	MovedTo string
}

// Service ingests transcripts.
type Service struct {
	store Saver
	cfg   Config
	log   *logger.Logger
}

// NewService creates a Service writing to store.
func NewService(store Saver, cfg Config) *Service {
	cfg.ApplyDefaults()
	return &Service{store: store, cfg: cfg, log: logger.Get("ingest")}
}

// IngestVTT stores the cues of a WebVTT file as one session and then moves
// the file to <inserted_dir>/<name>.inserted.<ext>. A zero session gets a
// fresh UUID; a zero date means today.
func (s *Service) IngestVTT(ctx context.Context, path string, date time.Time, session uuid.UUID) (*Result, error) {
	cues, err := vtt.ParseFile(path)
	if err != nil {
		return nil, err
	}

	segments := make([]alignment.Segment, len(cues))
	for i, c := range cues {
		segments[i] = alignment.Segment{Speaker: c.Speaker, Span: c.Span, Text: c.Text}
	}

	res, err := s.save(ctx, session, date, segments, nil)
	if err != nil {
		return nil, err
	}

	if !s.cfg.KeepSource {
		dest, err := s.moveInserted(path)
		if err != nil {
			return res, err
		}
		res.MovedTo = dest
	}

	s.log.Info("vtt ingested", logger.Fields(
		logger.FieldPath, path,
		logger.FieldSessionID, res.SessionID.String(),
		"rows", res.Rows,
		"conversations", res.Conversations,
	))
	return res, nil
}

// Recording identifies the audio an aligned run came from.
type Recording struct {
	Path     string
	Hash     string
	Duration float64
}

// IngestSegments stores an aligned run. When rec is not nil the recording is
// stored with it and a hash seen before fails with DUPLICATE_RECORDING.
func (s *Service) IngestSegments(ctx context.Context, session uuid.UUID, date time.Time, segments []alignment.Segment, rec *Recording) (*Result, error) {
	var row *transcripts.Recording
	if rec != nil {
		if rec.Hash == "" {
			return nil, errors.MissingField("hash")
		}
		row = &transcripts.Recording{Path: rec.Path, Hash: rec.Hash, Duration: rec.Duration}
	}
	return s.save(ctx, session, date, segments, row)
}

func (s *Service) save(ctx context.Context, session uuid.UUID, date time.Time, segments []alignment.Segment, rec *transcripts.Recording) (*Result, error) {
	if session == uuid.Nil {
		session = uuid.New()
	}
	if date.IsZero() {
		date = time.Now()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	rows := transcripts.FromSegments(session, date, segments, s.cfg.ConversationGap)
	if rec != nil {
		rec.SessionID = session
	}
	if err := s.store.SaveSession(ctx, rows, rec); err != nil {
		return nil, err
	}

	res := &Result{SessionID: session, Rows: len(rows)}
	if len(rows) > 0 {
		res.Conversations = rows[len(rows)-1].Conversation
	}
	return res, nil
}

// InsertedName returns the name a file gets once ingested: "talk.vtt"
// becomes "talk.inserted.vtt".
func InsertedName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".inserted" + ext
}

func (s *Service) moveInserted(path string) (string, error) {
	if err := os.MkdirAll(s.cfg.InsertedDir, 0o755); err != nil {
		return "", errors.StorageError("mkdir", err)
	}
	dest := filepath.Join(s.cfg.InsertedDir, InsertedName(path))
	if err := move(path, dest); err != nil {
		return "", errors.StorageError("move", err).WithDetail("path", path)
	}
	return dest, nil
}

// move renames src to dst, copying when they are on different devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
