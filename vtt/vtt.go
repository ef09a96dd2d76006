// Package vtt reads and writes WebVTT transcripts whose cue text carries
// the speaker as a "[speaker]: text" prefix.
package vtt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
)

// UnknownSpeaker labels cues without a speaker prefix.
const UnknownSpeaker = "Unknown"

// Cue is one timed caption.
type Cue struct {
	ID      string
	Span    alignment.TimeSpan
	Speaker string
	Text    string
}

// ParseFile parses the WebVTT file at path.
func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.InvalidInput("vtt", err.Error()).WithCause(err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a WebVTT document. NOTE, STYLE and REGION blocks are skipped.
// Multi-line cue payloads are joined with a space.
func Parse(r io.Reader) ([]Cue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimRight(sc.Text(), "\r"), true
	}

	header, ok := next()
	header = strings.TrimPrefix(header, "\ufeff")
	if !ok || !strings.HasPrefix(header, "WEBVTT") {
		return nil, errors.InvalidVTT(1, "missing WEBVTT header")
	}
	// Skip the rest of the header block.
	for {
		line, ok := next()
		if !ok || line == "" {
			break
		}
	}

	cues := []Cue{}
	for {
		line, ok := next()
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isMetaBlock(line) {
			for {
				l, ok := next()
				if !ok || l == "" {
					break
				}
			}
			continue
		}

		var id string
		if !strings.Contains(line, "-->") {
			id = line
			if line, ok = next(); !ok {
				return nil, errors.InvalidVTT(lineNo, "cue identifier without timing")
			}
		}
		span, err := parseTiming(line)
		if err != nil {
			return nil, errors.InvalidVTT(lineNo, err.Error())
		}

		var payload []string
		for {
			l, ok := next()
			if !ok || l == "" {
				break
			}
			payload = append(payload, strings.TrimSpace(l))
		}
		speaker, text := SplitSpeaker(strings.Join(payload, " "))
		cues = append(cues, Cue{ID: id, Span: span, Speaker: speaker, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.InvalidInput("vtt", err.Error()).WithCause(err)
	}
	return cues, nil
}

func isMetaBlock(line string) bool {
	for _, kw := range []string{"NOTE", "STYLE", "REGION"} {
		if line == kw || strings.HasPrefix(line, kw+" ") || strings.HasPrefix(line, kw+"\t") {
			return true
		}
	}
	return false
}

func parseTiming(line string) (alignment.TimeSpan, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return alignment.TimeSpan{}, fmt.Errorf("expected cue timing, got %q", line)
	}
	// Cue settings follow the end timestamp.
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return alignment.TimeSpan{}, fmt.Errorf("missing end timestamp")
	}
	start, err := ParseTimestamp(strings.TrimSpace(left))
	if err != nil {
		return alignment.TimeSpan{}, err
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return alignment.TimeSpan{}, err
	}
	return alignment.TimeSpan{Start: start, End: end}, nil
}

// SplitSpeaker separates a "[speaker]: text" prefix from cue text. Text
// without the bracketed prefix belongs to UnknownSpeaker and is kept whole.
// A bare "Name: text" is not read as a speaker, since captions such as
// "Agenda: budget" or "at 10:30" would otherwise invent one; transcripts
// labelled that way must be rewritten to the bracket form before ingest.
func SplitSpeaker(s string) (speaker, text string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]:"); end > 1 {
			return strings.TrimSpace(s[1:end]), strings.TrimSpace(s[end+2:])
		}
	}
	return UnknownSpeaker, s
}

// ParseTimestamp parses "hh:mm:ss.ttt" or "mm:ss.ttt" into seconds.
func ParseTimestamp(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	secs, err := decimal.NewFromString(parts[len(parts)-1])
	if err != nil || !strings.Contains(parts[len(parts)-1], ".") {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	total := secs
	mult := decimal.NewFromInt(60)
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := decimal.NewFromString(parts[i])
		if err != nil || !n.IsInteger() || n.IsNegative() {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		total = total.Add(n.Mul(mult))
		mult = mult.Mul(decimal.NewFromInt(60))
	}
	return total.InexactFloat64(), nil
}

// FormatTimestamp renders seconds as "hh:mm:ss.ttt", rounded to the
// millisecond.
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := decimal.NewFromFloat(sec).Shift(3).Round(0).IntPart()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// Write renders cues as a WebVTT document with "[speaker]: text" payloads.
func Write(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "WEBVTT\n")
	for _, c := range cues {
		fmt.Fprint(bw, "\n")
		if c.ID != "" {
			fmt.Fprintf(bw, "%s\n", c.ID)
		}
		fmt.Fprintf(bw, "%s --> %s\n", FormatTimestamp(c.Span.Start), FormatTimestamp(c.Span.End))
		speaker := c.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		fmt.Fprintf(bw, "[%s]: %s\n", speaker, strings.TrimSpace(c.Text))
	}
	return bw.Flush()
}

// FromSegments converts aligned segments to cues.
func FromSegments(segments []alignment.Segment) []Cue {
	cues := make([]Cue, len(segments))
	for i, s := range segments {
		cues[i] = Cue{Span: s.Span, Speaker: s.Speaker, Text: strings.TrimSpace(s.Text)}
	}
	return cues
}
