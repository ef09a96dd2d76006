package transcripts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/conversation"
)

// FromSegments turns aligned segments into rows for one session, numbering
// conversations with the given gap (0 means conversation.DefaultGap).
// Segments with no text after trimming are dropped.
func FromSegments(session uuid.UUID, date time.Time, segments []alignment.Segment, gap time.Duration) []Transcript {
	counter := conversation.Counter{Gap: gap}
	rows := make([]Transcript, 0, len(segments))
	for _, seg := range segments {
		n := counter.Next(seg.Span)
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		rows = append(rows, Transcript{
			SessionID:    session,
			Conversation: n,
			Speaker:      seg.Speaker,
			Date:         date,
			StartTime:    seg.Span.Start,
			EndTime:      seg.Span.End,
			Duration:     seg.Span.Duration(),
			Content:      text,
		})
	}
	return rows
}
