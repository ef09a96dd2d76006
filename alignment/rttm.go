package alignment

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kbukum/lifescribe/errors"
)

// RTTM field positions. A SPEAKER record reads
//
//	SPEAKER <file> <channel> <onset> <duration> <NA> <NA> <speaker> <NA> <NA>
const (
	rttmMinFields   = 8
	rttmFieldOnset  = 3
	rttmFieldLength = 4
	rttmFieldName   = 7
)

// IntervalStore holds the speaker intervals of one recording in the order
// the diarizer produced them. It never sorts, merges or deduplicates.
type IntervalStore struct {
	intervals []SpeakerInterval
	skipped   int
}

// NewIntervalStore wraps intervals that were produced without RTTM text.
func NewIntervalStore(intervals []SpeakerInterval) *IntervalStore {
	return &IntervalStore{intervals: append([]SpeakerInterval(nil), intervals...)}
}

// ParseRTTM reads RTTM records from r. Lines with fewer than eight fields
// are skipped (their count is available from Skipped). A record with enough
// fields but a non-numeric onset or duration is an INVALID_RTTM_RECORD error.
func ParseRTTM(r io.Reader) (*IntervalStore, error) {
	store := &IntervalStore{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < rttmMinFields {
			store.skipped++
			continue
		}

		onset, err := strconv.ParseFloat(fields[rttmFieldOnset], 64)
		if err != nil {
			return nil, errors.InvalidRTTMRecord(line, fmt.Sprintf("onset %q is not a number", fields[rttmFieldOnset])).WithCause(err)
		}
		length, err := strconv.ParseFloat(fields[rttmFieldLength], 64)
		if err != nil {
			return nil, errors.InvalidRTTMRecord(line, fmt.Sprintf("duration %q is not a number", fields[rttmFieldLength])).WithCause(err)
		}

		store.intervals = append(store.intervals, SpeakerInterval{
			Span:    TimeSpan{Start: onset, End: onset + length},
			Speaker: fields[rttmFieldName],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rttm: %w", err)
	}
	return store, nil
}

// ParseRTTMString is ParseRTTM over an in-memory document.
func ParseRTTMString(s string) (*IntervalStore, error) {
	return ParseRTTM(strings.NewReader(s))
}

// Intervals returns a copy of the intervals in ingestion order.
func (s *IntervalStore) Intervals() []SpeakerInterval {
	return append([]SpeakerInterval(nil), s.intervals...)
}

// Len returns the number of intervals.
func (s *IntervalStore) Len() int { return len(s.intervals) }

// Skipped returns how many non-empty lines had too few fields to be a record.
func (s *IntervalStore) Skipped() int { return s.skipped }

// Speakers returns the distinct speaker labels in order of first appearance.
func (s *IntervalStore) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, iv := range s.intervals {
		if !seen[iv.Speaker] {
			seen[iv.Speaker] = true
			speakers = append(speakers, iv.Speaker)
		}
	}
	return speakers
}

// FormatRTTM writes intervals as RTTM SPEAKER records for the given file id.
// Whitespace inside the file id or a speaker label becomes '_' and an empty
// label is written as Unknown, so ParseRTTM reads back one field per value.
func FormatRTTM(w io.Writer, fileID string, intervals []SpeakerInterval) error {
	fileID = rttmToken(fileID, "audio")
	bw := bufio.NewWriter(w)
	for _, iv := range intervals {
		if _, err := fmt.Fprintf(bw, "SPEAKER %s 1 %.3f %.3f <NA> <NA> %s <NA> <NA>\n",
			fileID, iv.Span.Start, iv.Span.Duration(), rttmToken(iv.Speaker, Unknown)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func rttmToken(s, empty string) string {
	if s = strings.Join(strings.Fields(s), "_"); s == "" {
		return empty
	}
	return s
}
