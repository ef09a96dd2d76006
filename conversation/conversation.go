// Package conversation splits a recording's timeline into conversations:
// a new one starts whenever the silence since the previous record ends is
// longer than a gap.
package conversation

import (
	"time"

	"github.com/kbukum/lifescribe/alignment"
)

// DefaultGap is the silence that starts a new conversation.
const DefaultGap = 45 * time.Second

// Counter numbers records one at a time, in order. The zero value uses
// DefaultGap.
type Counter struct {
	Gap time.Duration

	current int
	lastEnd float64
}

// Next returns the conversation number of span, starting at 1. A span
// whose start is more than Gap after the previous span's end opens the next
// conversation.
func (c *Counter) Next(span alignment.TimeSpan) int {
	gap := c.Gap
	if gap <= 0 {
		gap = DefaultGap
	}
	switch {
	case c.current == 0:
		c.current = 1
	case span.Start > c.lastEnd+gap.Seconds():
		c.current++
	}
	c.lastEnd = span.End
	return c.current
}

// Current returns the last number handed out, 0 before the first call.
func (c *Counter) Current() int { return c.current }

// Number assigns conversation numbers to spans in order.
func Number(spans []alignment.TimeSpan, gap time.Duration) []int {
	c := Counter{Gap: gap}
	out := make([]int, len(spans))
	for i, s := range spans {
		out[i] = c.Next(s)
	}
	return out
}
