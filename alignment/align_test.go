package alignment

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kbukum/lifescribe/errors"
)

func ch(start, end float64, text string) Chunk {
	return Chunk{Timestamp: NewTimestamp(start, end), Text: text}
}

func iv(start, end float64, speaker string) SpeakerInterval {
	return SpeakerInterval{Span: TimeSpan{start, end}, Speaker: speaker}
}

func TestAlign_ThreeChunksOneSpeaker(t *testing.T) {
	chunks := []Chunk{ch(0, 1, " a"), ch(1, 2, " b"), ch(2, 3, " c")}
	got, err := Align(chunks, []SpeakerInterval{iv(0, 3, "A")})
	if err != nil {
		t.Fatal(err)
	}
	want := []Segment{{Speaker: "A", Span: TimeSpan{0, 3}, Text: " a b c"}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestAlign_AlternatingSpeakers(t *testing.T) {
	chunks := []Chunk{ch(0, 1, "x"), ch(2, 3, "y"), ch(4, 5, "z")}
	intervals := []SpeakerInterval{iv(0, 1.5, "A"), iv(1.8, 3.5, "B"), iv(3.8, 6, "A")}
	got, err := Align(chunks, intervals)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(got), got)
	}
	for i, speaker := range []string{"A", "B", "A"} {
		if got[i].Speaker != speaker {
			t.Errorf("segment %d: expected %s, got %s", i, speaker, got[i].Speaker)
		}
	}
}

func TestAlign_EmptyInputs(t *testing.T) {
	got, err := Align(nil, []SpeakerInterval{iv(0, 1, "A")})
	if err != nil {
		t.Fatalf("empty chunks must not fail: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty output, got %#v", got)
	}

	got, stats, err := AlignWithStats([]Chunk{ch(0, 1, "a"), ch(1, 2, "b")}, nil)
	if err != nil {
		t.Fatalf("empty intervals must not fail: %v", err)
	}
	if len(got) != 1 || got[0].Speaker != Unknown || got[0].Text != "ab" {
		t.Errorf("expected one UNKNOWN segment, got %+v", got)
	}
	if stats.UnknownChunks != 2 {
		t.Errorf("expected 2 unknown chunks, got %d", stats.UnknownChunks)
	}
}

func TestAlign_MissingBoundaryFailsRun(t *testing.T) {
	end := 2.0
	tests := []struct {
		name     string
		chunk    Chunk
		boundary string
	}{
		{"missing start", Chunk{Timestamp: Timestamp{nil, &end}, Text: "a"}, "start"},
		{"missing end", Chunk{Timestamp: Timestamp{&end, nil}, Text: "a"}, "end"},
		{"missing both", Chunk{Text: "a"}, "start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := []Chunk{ch(0, 1, "ok"), tt.chunk}
			got, err := Align(chunks, []SpeakerInterval{iv(0, 5, "A")})
			if got != nil {
				t.Errorf("no partial output expected, got %+v", got)
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeMissingChunkBoundary {
				t.Fatalf("expected MISSING_CHUNK_BOUNDARY, got %v", err)
			}
			if appErr.Details["chunk"] != 1 || appErr.Details["boundary"] != tt.boundary {
				t.Errorf("unexpected details %v", appErr.Details)
			}
		})
	}
}

func TestAlign_DoesNotSortChunks(t *testing.T) {
	chunks := []Chunk{ch(5, 6, "late"), ch(0, 1, "early")}
	got, err := Align(chunks, []SpeakerInterval{iv(0, 10, "A")})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "lateearly" || got[0].Span != (TimeSpan{5, 1}) {
		t.Errorf("chunks must be consumed as given, got %+v", got)
	}
}

func TestAlign_Properties(t *testing.T) {
	intervals := []SpeakerInterval{
		iv(0, 2, "A"), iv(2.5, 4, "B"), iv(3.5, 7, "A"), iv(7.5, 9, "C"),
	}
	chunkSets := map[string][]Chunk{
		"mixed": {
			ch(0, 0.5, " a"), ch(0.5, 1, " b"), ch(2.6, 3, " c"),
			ch(3.6, 3.9, " d"), ch(5, 6, " e"), ch(7.2, 7.4, " f"), ch(8, 9, " g"),
		},
		"all distinct": {ch(0, 1, "1"), ch(2.6, 3, "2"), ch(5, 6, "3"), ch(8, 9, "4")},
		"single":       {ch(10, 11, "solo")},
	}

	r := NewResolver(intervals)
	for name, chunks := range chunkSets {
		t.Run(name, func(t *testing.T) {
			got, err := Align(chunks, intervals)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) > len(chunks) {
				t.Fatalf("more segments (%d) than chunks (%d)", len(got), len(chunks))
			}

			sameAdjacent := false
			for i := 1; i < len(chunks); i++ {
				if r.Resolve(mustSpan(t, chunks[i-1])) == r.Resolve(mustSpan(t, chunks[i])) {
					sameAdjacent = true
				}
			}
			if (len(got) == len(chunks)) == sameAdjacent {
				t.Errorf("segment count %d vs chunk count %d inconsistent with sameAdjacent=%v",
					len(got), len(chunks), sameAdjacent)
			}

			var allChunks, allSegments strings.Builder
			for _, c := range chunks {
				allChunks.WriteString(c.Text)
			}
			for i, s := range got {
				allSegments.WriteString(s.Text)
				if i > 0 && got[i-1].Speaker == s.Speaker {
					t.Errorf("adjacent segments %d and %d share speaker %s", i-1, i, s.Speaker)
				}
			}
			if allChunks.String() != allSegments.String() {
				t.Errorf("text changed: %q vs %q", allChunks.String(), allSegments.String())
			}
		})
	}
}

func mustSpan(t *testing.T, c Chunk) TimeSpan {
	t.Helper()
	span, err := c.Span(0)
	if err != nil {
		t.Fatal(err)
	}
	return span
}

func TestAlignWithStats_Ambiguous(t *testing.T) {
	chunks := []Chunk{ch(0, 1, "a"), ch(1.5, 2.5, "b")}
	intervals := []SpeakerInterval{iv(0, 2, "A"), iv(2, 3, "B")}
	segments, stats, err := AlignWithStats(chunks, intervals)
	if err != nil {
		t.Fatal(err)
	}
	if stats.AmbiguousChunks != 1 {
		t.Errorf("expected 1 ambiguous chunk, got %d", stats.AmbiguousChunks)
	}
	if stats.Chunks != 2 || stats.Intervals != 2 || stats.Segments != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if segments[0].Speaker != "A" {
		t.Errorf("ambiguous chunk should go to the first listed speaker, got %s", segments[0].Speaker)
	}
}

func TestSegmentJSON(t *testing.T) {
	seg := Segment{Speaker: "SPEAKER_00", Span: TimeSpan{0.5, 2}, Text: " hello"}
	data, err := json.Marshal(seg)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"speaker":"SPEAKER_00","timestamp":[0.5,2],"text":" hello"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var back Segment
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != seg {
		t.Errorf("expected %+v, got %+v", seg, back)
	}
}

func TestChunkJSON_NullBoundary(t *testing.T) {
	var chunks []Chunk
	input := `[{"timestamp":[0.0,1.2],"text":" Hi"},{"timestamp":[1.2,null],"text":" bye"}]`
	if err := json.Unmarshal([]byte(input), &chunks); err != nil {
		t.Fatal(err)
	}
	if _, err := chunks[0].Span(0); err != nil {
		t.Errorf("first chunk should be complete: %v", err)
	}
	if _, err := chunks[1].Span(1); !errors.HasCode(err, errors.ErrCodeMissingChunkBoundary) {
		t.Errorf("expected missing end, got %v", err)
	}
}
