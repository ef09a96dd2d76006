// Package render writes aligned segments in the output formats the CLI
// offers.
package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/vtt"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatVTT      Format = "vtt"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatVTT, FormatMarkdown}

// ParseFormat resolves a format name. The empty string is FormatText; "md"
// is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", errors.InvalidInput("format", fmt.Sprintf("unknown format %q", s))
}

// Write renders segments to w in format f.
func Write(w io.Writer, f Format, segments []alignment.Segment) error {
	switch f {
	case FormatText, "":
		return Text(w, segments)
	case FormatJSON:
		return JSON(w, segments)
	case FormatVTT:
		return vtt.Write(w, vtt.FromSegments(segments))
	case FormatMarkdown:
		return Markdown(w, segments)
	}
	return errors.InvalidInput("format", fmt.Sprintf("unknown format %q", f))
}

// Text writes one "[speaker] (start, end): text" line per segment.
func Text(w io.Writer, segments []alignment.Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segments {
		fmt.Fprintf(bw, "[%s] (%s, %s): %s\n", s.Speaker, seconds(s.Span.Start), seconds(s.Span.End), s.Text)
	}
	return bw.Flush()
}

// JSON writes the segments as an indented array of
// {"speaker", "timestamp": [start, end], "text"} objects.
func JSON(w io.Writer, segments []alignment.Segment) error {
	if segments == nil {
		segments = []alignment.Segment{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(segments)
}

// Markdown writes one "**[hh:mm:ss] speaker:** text" paragraph per segment.
func Markdown(w io.Writer, segments []alignment.Segment) error {
	bw := bufio.NewWriter(w)
	for i, s := range segments {
		if i > 0 {
			fmt.Fprint(bw, "\n")
		}
		fmt.Fprintf(bw, "**[%s] %s:** %s\n", clock(s.Span.Start), s.Speaker, strings.TrimSpace(s.Text))
	}
	return bw.Flush()
}

// seconds formats a float the shortest way that round-trips, always with a
// fractional part.
func seconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// clock renders seconds as hh:mm:ss, truncating the fraction.
func clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := decimal.NewFromFloat(sec).Truncate(0).IntPart()
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
