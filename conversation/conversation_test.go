package conversation

import (
	"testing"
	"time"

	"github.com/kbukum/lifescribe/alignment"
)

func span(start, end float64) alignment.TimeSpan {
	return alignment.TimeSpan{Start: start, End: end}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name  string
		spans []alignment.TimeSpan
		gap   time.Duration
		want  []int
	}{
		{"empty", nil, 0, []int{}},
		{"single", []alignment.TimeSpan{span(3, 4)}, 0, []int{1}},
		{
			name:  "gap exactly at threshold stays",
			spans: []alignment.TimeSpan{span(0, 10), span(55, 60)},
			want:  []int{1, 1},
		},
		{
			name:  "gap above threshold splits",
			spans: []alignment.TimeSpan{span(0, 10), span(55.5, 60), span(61, 62), span(200, 201)},
			want:  []int{1, 2, 2, 3},
		},
		{
			name:  "custom gap",
			spans: []alignment.TimeSpan{span(0, 1), span(3, 4), span(4.5, 5)},
			gap:   time.Second,
			want:  []int{1, 2, 2},
		},
		{
			name:  "measured from previous end, not the latest end",
			spans: []alignment.TimeSpan{span(0, 100), span(10, 20), span(70, 80)},
			want:  []int{1, 1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Number(tt.spans, tt.gap)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestCounter_Current(t *testing.T) {
	var c Counter
	if c.Current() != 0 {
		t.Errorf("Current() = %d before use", c.Current())
	}
	c.Next(span(0, 1))
	c.Next(span(100, 101))
	if c.Current() != 2 {
		t.Errorf("Current() = %d, want 2", c.Current())
	}
}
