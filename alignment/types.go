package alignment

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/lifescribe/errors"
)

// Unknown is the speaker assigned to a chunk that no interval overlaps.
const Unknown = "UNKNOWN"

// TimeSpan is a closed interval in seconds from the start of the recording.
// It encodes to JSON as a two element array, [start, end].
type TimeSpan struct {
	Start float64
	End   float64
}

// Overlaps reports whether s and o share at least one instant. Touching
// endpoints count as overlapping.
func (s TimeSpan) Overlaps(o TimeSpan) bool {
	return s.Start <= o.End && s.End >= o.Start
}

// Duration returns End - Start.
func (s TimeSpan) Duration() float64 {
	return s.End - s.Start
}

// MarshalJSON encodes the span as [start, end].
func (s TimeSpan) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] array.
func (s *TimeSpan) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("timespan: %w", err)
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// SpeakerInterval is one diarization claim: Speaker talks during Span.
type SpeakerInterval struct {
	Span    TimeSpan
	Speaker string
}

// Timestamp is the [start, end] pair of an ASR chunk as the recognizer emits
// it. Either side may be null at the edges of the recognizer's window.
type Timestamp [2]*float64

// NewTimestamp builds a Timestamp with both boundaries set.
func NewTimestamp(start, end float64) Timestamp {
	return Timestamp{&start, &end}
}

// Chunk is a raw ASR chunk, the element type of the audio.json dump.
type Chunk struct {
	Timestamp Timestamp `json:"timestamp"`
	Text      string    `json:"text"`
}

// Span converts the chunk's timestamp to a TimeSpan. index identifies the
// chunk in the error when a boundary is missing.
func (c Chunk) Span(index int) (TimeSpan, error) {
	if c.Timestamp[0] == nil {
		return TimeSpan{}, errors.MissingChunkBoundary(index, "start")
	}
	if c.Timestamp[1] == nil {
		return TimeSpan{}, errors.MissingChunkBoundary(index, "end")
	}
	return TimeSpan{Start: *c.Timestamp[0], End: *c.Timestamp[1]}, nil
}

// TranscriptChunk is a chunk whose boundaries are known to be numeric.
type TranscriptChunk struct {
	Span TimeSpan
	Text string
}

// Segment is a maximal run of consecutive chunks attributed to one speaker.
type Segment struct {
	Speaker string   `json:"speaker"`
	Span    TimeSpan `json:"timestamp"`
	Text    string   `json:"text"`
}
