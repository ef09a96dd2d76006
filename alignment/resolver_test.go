package alignment

import "testing"

func TestTimeSpan_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeSpan
		want bool
	}{
		{"disjoint before", TimeSpan{0, 1}, TimeSpan{2, 3}, false},
		{"disjoint after", TimeSpan{4, 5}, TimeSpan{2, 3}, false},
		{"touching end", TimeSpan{0, 2}, TimeSpan{2, 3}, true},
		{"touching start", TimeSpan{3, 4}, TimeSpan{2, 3}, true},
		{"contained", TimeSpan{0, 10}, TimeSpan{2, 3}, true},
		{"partial", TimeSpan{2.5, 4}, TimeSpan{2, 3}, true},
		{"zero width inside", TimeSpan{1, 1}, TimeSpan{0, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("%v.Overlaps(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("overlap must be symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	intervals := []SpeakerInterval{
		{Span: TimeSpan{5, 8}, Speaker: "B"},
		{Span: TimeSpan{0, 4}, Speaker: "A"},
		{Span: TimeSpan{1, 2}, Speaker: "A"},
		{Span: TimeSpan{3, 6}, Speaker: "C"},
	}
	r := NewResolver(intervals)

	tests := []struct {
		name string
		span TimeSpan
		want string
	}{
		{"single speaker many intervals", TimeSpan{1.2, 1.8}, "A"},
		{"no overlap", TimeSpan{9, 10}, Unknown},
		{"ambiguous picks first in ingestion order", TimeSpan{3.5, 5.5}, "B"},
		{"ambiguous not lexical", TimeSpan{3.5, 3.9}, "A"},
		{"touching boundary counts", TimeSpan{8, 9}, "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.span); got != tt.want {
				t.Errorf("Resolve(%v) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}
}

func TestResolver_NoIntervals(t *testing.T) {
	r := NewResolver(nil)
	if got := r.Resolve(TimeSpan{0, 1}); got != Unknown {
		t.Errorf("expected %q, got %q", Unknown, got)
	}
	if got := r.Candidates(TimeSpan{0, 1}); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestResolver_CandidatesOrderedAndDistinct(t *testing.T) {
	r := NewResolver([]SpeakerInterval{
		{Span: TimeSpan{0, 10}, Speaker: "Z"},
		{Span: TimeSpan{0, 10}, Speaker: "A"},
		{Span: TimeSpan{0, 10}, Speaker: "Z"},
		{Span: TimeSpan{0, 10}, Speaker: "M"},
	})
	got := r.Candidates(TimeSpan{1, 2})
	want := []string{"Z", "A", "M"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	if r.Resolve(TimeSpan{1, 2}) != got[0] {
		t.Error("Resolve must agree with the first candidate")
	}
}

func TestResolver_Deterministic(t *testing.T) {
	intervals := []SpeakerInterval{
		{Span: TimeSpan{0, 2}, Speaker: "SPEAKER_01"},
		{Span: TimeSpan{1, 3}, Speaker: "SPEAKER_00"},
	}
	first := NewResolver(intervals).Resolve(TimeSpan{1, 2})
	for i := 0; i < 100; i++ {
		if got := NewResolver(intervals).Resolve(TimeSpan{1, 2}); got != first {
			t.Fatalf("run %d resolved %q, first run %q", i, got, first)
		}
	}
}
