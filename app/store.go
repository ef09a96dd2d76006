package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/database"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/transcripts"
)

// dbStore resolves the transcript store when a request arrives, so the API
// server can be built before the database component has connected.
type dbStore struct {
	db *database.Component
}

func (s *dbStore) store() (*transcripts.Store, error) {
	db := s.db.DB()
	if db == nil {
		return nil, errors.ServiceUnavailable("database")
	}
	return transcripts.NewStore(db), nil
}

func (s *dbStore) Latest(ctx context.Context) ([]transcripts.Transcript, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Latest(ctx)
}

func (s *dbStore) Conversation(ctx context.Context, id uint) ([]transcripts.Transcript, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Conversation(ctx, id)
}

func (s *dbStore) Update(ctx context.Context, id uint, u transcripts.Update) (*transcripts.Transcript, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	return st.Update(ctx, id, u)
}

func (s *dbStore) RenameSpeaker(ctx context.Context, session uuid.UUID, conversation int, from, to string) (int64, error) {
	st, err := s.store()
	if err != nil {
		return 0, err
	}
	return st.RenameSpeaker(ctx, session, conversation, from, to)
}
