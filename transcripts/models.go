// Package transcripts persists speaker-attributed transcript rows and the
// recordings they came from.
package transcripts

import (
	"embed"
	"time"

	"github.com/google/uuid"
)

// Migrations holds the Postgres schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Transcript is one speaker turn. Times are seconds from the start of the
// recording.
type Transcript struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;index:session_id_idx" json:"session_id"`
	Conversation int       `gorm:"not null;index:conversation_idx" json:"conversation"`
	Speaker      string    `gorm:"size:255;not null;index:speaker_idx" json:"speaker"`
	Date         time.Time `gorm:"type:date;not null" json:"date"`
	StartTime    float64   `gorm:"not null" json:"start_time"`
	EndTime      float64   `gorm:"not null" json:"end_time"`
	Duration     float64   `gorm:"not null" json:"duration"`
	Content      string    `gorm:"type:text;not null" json:"content"`
}

// Recording is an audio file that was aligned into transcripts. Hash is the
// BLAKE3 digest of the file so the same recording is not processed twice.
type Recording struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:recordings_session_id_idx" json:"session_id"`
	Path      string    `gorm:"not null" json:"path"`
	Hash      string    `gorm:"size:64;not null;uniqueIndex:recordings_hash_idx" json:"hash"`
	Duration  float64   `gorm:"not null;default:0" json:"duration"`
	Segments  int       `gorm:"not null;default:0" json:"segments"`
	CreatedAt time.Time `json:"created_at"`
}

// Models lists the tables for AutoMigrate.
func Models() []any {
	return []any{&Transcript{}, &Recording{}}
}
