package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/transcripts"
	"github.com/kbukum/lifescribe/validation"
)

// TranscriptStore is the persistence the API reads and edits.
type TranscriptStore interface {
	Latest(ctx context.Context) ([]transcripts.Transcript, error)
	Conversation(ctx context.Context, id uint) ([]transcripts.Transcript, error)
	Update(ctx context.Context, id uint, u transcripts.Update) (*transcripts.Transcript, error)
	RenameSpeaker(ctx context.Context, session uuid.UUID, conversation int, from, to string) (int64, error)
}

var timeNow = time.Now

type handlers struct {
	store TranscriptStore
	log   *logger.Logger
}

func (h *handlers) latest(c *gin.Context) {
	rows, err := h.store.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

func (h *handlers) conversation(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.store.Conversation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}

type updateRequest struct {
	Speaker      *string  `json:"speaker"`
	Content      *string  `json:"content"`
	Conversation *int     `json:"conversation"`
	Date         *string  `json:"date"`
	StartTime    *float64 `json:"start_time"`
	EndTime      *float64 `json:"end_time"`
}

func (r *updateRequest) toUpdate() (transcripts.Update, error) {
	u := transcripts.Update{
		Content:      r.Content,
		Conversation: r.Conversation,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
	if r.Speaker == nil && r.Content == nil && r.Conversation == nil &&
		r.Date == nil && r.StartTime == nil && r.EndTime == nil {
		return u, errors.InvalidInput("body", "no fields to update")
	}
	if r.Speaker != nil {
		if !validation.IsSpeakerLabel(*r.Speaker) {
			return u, errors.InvalidInput("speaker", "must be a non-empty label without surrounding whitespace")
		}
		u.Speaker = r.Speaker
	}
	if r.Conversation != nil && *r.Conversation < 1 {
		return u, errors.InvalidInput("conversation", "must be at least 1")
	}
	if (r.StartTime != nil && *r.StartTime < 0) || (r.EndTime != nil && *r.EndTime < 0) {
		return u, errors.InvalidInput("start_time", "times must not be negative")
	}
	if r.Content != nil {
		trimmed := strings.TrimSpace(*r.Content)
		u.Content = &trimmed
	}
	if r.Date != nil {
		d, err := validation.ParseDate(*r.Date, timeNow())
		if err != nil {
			return u, err
		}
		u.Date = &d
	}
	return u, nil
}

func (h *handlers) update(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		respondError(c, err)
		return
	}
	row, err := h.store.Update(c.Request.Context(), id, u)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Info("transcript updated", logger.Fields("id", id, logger.FieldSessionID, row.SessionID.String()))
	respondOK(c, row)
}

type renameRequest struct {
	SessionID    string `json:"session_id" validate:"required,uuid"`
	Conversation int    `json:"conversation" validate:"gte=1"`
	From         string `json:"from" validate:"required"`
	To           string `json:"to" validate:"speaker"`
}

type renameResponse struct {
	Updated int64 `json:"updated"`
}

func (h *handlers) renameSpeaker(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(req); err != nil {
		respondError(c, err)
		return
	}
	n, err := h.store.RenameSpeaker(c.Request.Context(), uuid.MustParse(req.SessionID), req.Conversation, req.From, req.To)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, renameResponse{Updated: n})
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.InvalidInput("id", "must be a positive integer")
	}
	return uint(id), nil
}
