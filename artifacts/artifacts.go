// Package artifacts writes the diagnostic dumps of an alignment run: the raw
// ASR chunks, the raw RTTM and the aligned result. Artifacts are write-only;
// no run reads them back.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/storage"
)

// Artifact file names inside a session directory.
const (
	ChunksFile  = "audio.json"
	RTTMFile    = "audio.rttm"
	AlignedFile = "aligned.json"
)

// Config is the artifacts section of the lifescribe config.
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// Sink receives the artifacts of one run.
type Sink interface {
	WriteChunks(ctx context.Context, session string, chunks []alignment.Chunk) error
	WriteRTTM(ctx context.Context, session string, rttm string) error
	WriteSegments(ctx context.Context, session string, segments []alignment.Segment) error
}

// Path returns the storage path of an artifact.
func Path(session, name string) string {
	return path.Join(session, name)
}

// StorageSink writes artifacts to a storage backend under <session>/.
type StorageSink struct {
	store storage.Storage
	log   *logger.Logger
}

// NewStorageSink creates a sink on store.
func NewStorageSink(store storage.Storage) *StorageSink {
	return &StorageSink{store: store, log: logger.Get("artifacts")}
}

// WriteChunks dumps the transcription chunks as they came from the provider.
func (s *StorageSink) WriteChunks(ctx context.Context, session string, chunks []alignment.Chunk) error {
	if chunks == nil {
		chunks = []alignment.Chunk{}
	}
	return s.writeJSON(ctx, session, ChunksFile, chunks)
}

// WriteRTTM dumps the diarization output verbatim.
func (s *StorageSink) WriteRTTM(ctx context.Context, session string, rttm string) error {
	return s.write(ctx, session, RTTMFile, []byte(rttm))
}

// WriteSegments dumps the aligned result.
func (s *StorageSink) WriteSegments(ctx context.Context, session string, segments []alignment.Segment) error {
	if segments == nil {
		segments = []alignment.Segment{}
	}
	return s.writeJSON(ctx, session, AlignedFile, segments)
}

func (s *StorageSink) writeJSON(ctx context.Context, session, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Internal(err)
	}
	return s.write(ctx, session, name, append(data, '\n'))
}

func (s *StorageSink) write(ctx context.Context, session, name string, data []byte) error {
	if strings.TrimSpace(session) == "" {
		return errors.InvalidInput("session", "must not be empty")
	}
	p := Path(session, name)
	if err := s.store.Upload(ctx, p, bytes.NewReader(data)); err != nil {
		s.log.Warn("artifact write failed", logger.Fields(logger.FieldArtifact, p, logger.FieldError, err.Error()))
		return err
	}
	s.log.Debug("artifact written", logger.Fields(logger.FieldArtifact, p, "bytes", len(data)))
	return nil
}

// Nop discards every artifact.
type Nop struct{}

func (Nop) WriteChunks(context.Context, string, []alignment.Chunk) error     { return nil }
func (Nop) WriteRTTM(context.Context, string, string) error                  { return nil }
func (Nop) WriteSegments(context.Context, string, []alignment.Segment) error { return nil }

var (
	_ Sink = (*StorageSink)(nil)
	_ Sink = Nop{}
)
