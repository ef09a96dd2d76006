package alignment

// Stats summarises one alignment run.
type Stats struct {
	Chunks    int `json:"chunks"`
	Intervals int `json:"intervals"`
	Segments  int `json:"segments"`
	// UnknownChunks counts chunks no interval overlapped.
	UnknownChunks int `json:"unknown_chunks"`
	// AmbiguousChunks counts chunks overlapped by more than one speaker.
	AmbiguousChunks int `json:"ambiguous_chunks"`
}

// Normalize checks that every chunk has both boundaries. The first chunk
// missing one fails the whole batch with MISSING_CHUNK_BOUNDARY; no chunk is
// ever given a guessed timestamp.
func Normalize(chunks []Chunk) ([]TranscriptChunk, error) {
	out := make([]TranscriptChunk, len(chunks))
	for i, c := range chunks {
		span, err := c.Span(i)
		if err != nil {
			return nil, err
		}
		out[i] = TranscriptChunk{Span: span, Text: c.Text}
	}
	return out, nil
}

// Align resolves and merges chunks against intervals. Chunks are consumed in
// the order given and are not sorted.
func Align(chunks []Chunk, intervals []SpeakerInterval) ([]Segment, error) {
	segments, _, err := AlignWithStats(chunks, intervals)
	return segments, err
}

// AlignWithStats is Align plus counters describing the run.
func AlignWithStats(chunks []Chunk, intervals []SpeakerInterval) ([]Segment, Stats, error) {
	normalized, err := Normalize(chunks)
	if err != nil {
		return nil, Stats{}, err
	}
	segments, stats := AlignTranscript(normalized, NewResolver(intervals))
	stats.Intervals = len(intervals)
	return segments, stats, nil
}

// AlignTranscript merges chunks whose boundaries are already validated.
func AlignTranscript(chunks []TranscriptChunk, resolver *Resolver) ([]Segment, Stats) {
	stats := Stats{Chunks: len(chunks)}
	var merger Merger
	for _, chunk := range chunks {
		candidates := resolver.Candidates(chunk.Span)
		speaker := Unknown
		switch {
		case len(candidates) == 0:
			stats.UnknownChunks++
		case len(candidates) > 1:
			stats.AmbiguousChunks++
			speaker = candidates[0]
		default:
			speaker = candidates[0]
		}
		merger.Push(chunk, speaker)
	}
	segments := merger.Finish()
	stats.Segments = len(segments)
	return segments, stats
}
