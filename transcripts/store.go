package transcripts

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/lifescribe/database"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/observability"
)

// Store reads and writes transcripts.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// NewStore creates a Store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, log: logger.Get("transcripts")}
}

// Migrate creates or upgrades the schema.
func Migrate(ctx context.Context, db *database.DB) error {
	return db.Migrate(ctx, Migrations, MigrationsDir, Models()...)
}

// SaveSession inserts rows and, when rec is not nil, the recording they
// came from, in one transaction. A recording whose hash is already stored
// fails with DUPLICATE_RECORDING and nothing is written.
func (s *Store) SaveSession(ctx context.Context, rows []Transcript, rec *Recording) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanStoreSave)
	defer span.End()

	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if rec != nil {
			var existing Recording
			err := tx.Where("hash = ?", rec.Hash).Limit(1).Find(&existing).Error
			if err != nil {
				return database.FromDatabase(err, "recording")
			}
			if existing.ID != 0 {
				return errors.DuplicateRecording(rec.Hash, existing.SessionID.String())
			}
			rec.Segments = len(rows)
			if err := tx.Create(rec).Error; err != nil {
				return database.FromDatabase(err, "recording")
			}
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return database.FromDatabase(err, "transcript")
		}
		return nil
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}

	fields := logger.Fields("rows", len(rows))
	if len(rows) > 0 {
		fields[logger.FieldSessionID] = rows[0].SessionID.String()
	}
	s.log.Info("session saved", fields)
	return nil
}

// Get returns one transcript row.
func (s *Store) Get(ctx context.Context, id uint) (*Transcript, error) {
	var t Transcript
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err, id)
	}
	return &t, nil
}

// Latest returns the conversation of the most recently inserted row,
// ordered by start time. An empty database gives an empty slice.
func (s *Store) Latest(ctx context.Context) ([]Transcript, error) {
	var last Transcript
	err := s.db.WithContext(ctx).Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return nil, database.FromDatabase(err, "transcript")
	}
	if last.ID == 0 {
		return []Transcript{}, nil
	}
	return s.conversation(ctx, last.SessionID, last.Conversation)
}

// Conversation returns every row in the same session and conversation as
// row id, ordered by start time.
func (s *Store) Conversation(ctx context.Context, id uint) ([]Transcript, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.conversation(ctx, t.SessionID, t.Conversation)
}

func (s *Store) conversation(ctx context.Context, session uuid.UUID, conversation int) ([]Transcript, error) {
	rows := []Transcript{}
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND conversation = ?", session, conversation).
		Order("start_time ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.FromDatabase(err, "transcript")
	}
	return rows, nil
}

// Update holds the editable fields of a row. Nil fields are left alone.
type Update struct {
	Speaker      *string
	Content      *string
	Conversation *int
	Date         *time.Time
	StartTime    *float64
	EndTime      *float64
}

// Update applies u to row id and returns the updated row. Duration follows
// the start and end times.
func (s *Store) Update(ctx context.Context, id uint, u Update) (*Transcript, error) {
	var out *Transcript
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var t Transcript
		if err := tx.First(&t, id).Error; err != nil {
			return notFound(err, id)
		}
		if u.Speaker != nil {
			t.Speaker = *u.Speaker
		}
		if u.Content != nil {
			t.Content = *u.Content
		}
		if u.Conversation != nil {
			t.Conversation = *u.Conversation
		}
		if u.Date != nil {
			t.Date = *u.Date
		}
		if u.StartTime != nil {
			t.StartTime = *u.StartTime
		}
		if u.EndTime != nil {
			t.EndTime = *u.EndTime
		}
		if t.EndTime < t.StartTime {
			return errors.InvalidInput("end_time", "must not be before start_time")
		}
		t.Duration = t.EndTime - t.StartTime
		if err := tx.Save(&t).Error; err != nil {
			return database.FromDatabase(err, "transcript")
		}
		out = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RenameSpeaker relabels speaker from as to within one conversation and
// returns the number of rows changed.
func (s *Store) RenameSpeaker(ctx context.Context, session uuid.UUID, conversation int, from, to string) (int64, error) {
	if to == "" {
		return 0, errors.MissingField("to")
	}
	res := s.db.WithContext(ctx).Model(&Transcript{}).
		Where("session_id = ? AND conversation = ? AND speaker = ?", session, conversation, from).
		Update("speaker", to)
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "transcript")
	}
	s.log.Info("speaker renamed", logger.Fields(
		logger.FieldSessionID, session.String(),
		"conversation", conversation,
		"from", from,
		"to", to,
		"rows", res.RowsAffected,
	))
	return res.RowsAffected, nil
}

// FindRecording returns the recording with the given content hash.
func (s *Store) FindRecording(ctx context.Context, hash string) (*Recording, error) {
	var r Recording
	err := s.db.WithContext(ctx).Where("hash = ?", hash).First(&r).Error
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.NotFound("recording", hash)
		}
		return nil, database.FromDatabase(err, "recording")
	}
	return &r, nil
}

func notFound(err error, id uint) error {
	if database.IsNotFoundError(err) {
		return errors.NotFound("transcript", strconv.FormatUint(uint64(id), 10))
	}
	return database.FromDatabase(err, "transcript")
}
