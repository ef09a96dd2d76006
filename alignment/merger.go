package alignment

import "strings"

// MergerState is the state of a Merger.
type MergerState int

const (
	// NoOpenSegment means no chunk has been pushed since the last Finish.
	NoOpenSegment MergerState = iota
	// OpenSegment means a segment is being extended for the current speaker.
	OpenSegment
)

// String returns the state name.
func (s MergerState) String() string {
	switch s {
	case NoOpenSegment:
		return "no-open-segment"
	case OpenSegment:
		return "open-segment"
	default:
		return "unknown"
	}
}

// Merger folds resolved chunks into segments. Consecutive chunks with the
// same speaker extend the open segment: its end moves to the chunk's end and
// the chunk text is appended verbatim. A speaker change closes the open
// segment. The zero value is ready to use.
type Merger struct {
	state   MergerState
	speaker string
	span    TimeSpan
	text    strings.Builder
	closed  []Segment
}

// State returns the current state.
func (m *Merger) State() MergerState { return m.state }

// Speaker returns the open segment's speaker, if a segment is open.
func (m *Merger) Speaker() (string, bool) {
	if m.state != OpenSegment {
		return "", false
	}
	return m.speaker, true
}

// Push feeds one chunk attributed to speaker.
func (m *Merger) Push(chunk TranscriptChunk, speaker string) {
	switch m.state {
	case NoOpenSegment:
		m.open(chunk, speaker)
	case OpenSegment:
		if speaker == m.speaker {
			m.span.End = chunk.Span.End
			m.text.WriteString(chunk.Text)
			return
		}
		m.close()
		m.open(chunk, speaker)
	}
}

// Finish closes any open segment, returns every closed segment in order and
// resets the Merger to NoOpenSegment. It never returns nil.
func (m *Merger) Finish() []Segment {
	if m.state == OpenSegment {
		m.close()
	}
	out := m.closed
	if out == nil {
		out = []Segment{}
	}
	m.closed = nil
	return out
}

func (m *Merger) open(chunk TranscriptChunk, speaker string) {
	m.state = OpenSegment
	m.speaker = speaker
	m.span = chunk.Span
	m.text.Reset()
	m.text.WriteString(chunk.Text)
}

func (m *Merger) close() {
	m.closed = append(m.closed, Segment{
		Speaker: m.speaker,
		Span:    m.span,
		Text:    m.text.String(),
	})
	m.state = NoOpenSegment
	m.speaker = ""
	m.span = TimeSpan{}
	m.text.Reset()
}
