package alignment

// Resolver attributes a time span to a speaker using the full interval list.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	intervals []SpeakerInterval
}

// NewResolver creates a Resolver over intervals, kept in the given order.
func NewResolver(intervals []SpeakerInterval) *Resolver {
	return &Resolver{intervals: intervals}
}

// Resolve returns the speaker for span. When several speakers overlap the
// span, the label of the earliest overlapping interval in ingestion order
// wins, which is the first distinct label a scan would encounter. A span that
// overlaps nothing resolves to Unknown.
func (r *Resolver) Resolve(span TimeSpan) string {
	for _, iv := range r.intervals {
		if iv.Span.Overlaps(span) {
			return iv.Speaker
		}
	}
	return Unknown
}

// Candidates returns the distinct speakers overlapping span, in order of
// first encounter. Its first element, if any, is what Resolve returns.
func (r *Resolver) Candidates(span TimeSpan) []string {
	var labels []string
	for _, iv := range r.intervals {
		if !iv.Span.Overlaps(span) || containsLabel(labels, iv.Speaker) {
			continue
		}
		labels = append(labels, iv.Speaker)
	}
	return labels
}

// containsLabel is a linear scan; a chunk rarely overlaps more than a
// handful of speakers.
func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
