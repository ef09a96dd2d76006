package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/errors"
)

// ParseSessionID parses a session identifier. An empty value yields a fresh
// random UUID, matching how a new ingestion run starts a new session.
func ParseSessionID(value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.InvalidFormat("session_id", "UUID").WithCause(err)
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.InvalidInput("session_id", "session id must not be the nil UUID")
	}
	return id, nil
}

// ParseDate parses a YYYY-MM-DD date. An empty value yields the calendar date of now.
func ParseDate(value string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, errors.InvalidFormat("date", "YYYY-MM-DD").WithCause(err)
	}
	return t, nil
}

// OneOf returns an INVALID_INPUT error unless value is in allowed.
func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.InvalidInput(field, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}
