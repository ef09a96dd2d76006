package transcription

import "github.com/kbukum/lifescribe/alignment"

// Granularity selects how finely a backend splits its output into chunks.
type Granularity string

const (
	// GranularitySegment emits one chunk per recognizer segment.
	GranularitySegment Granularity = "segment"
	// GranularityWord emits one chunk per word. Word boundaries may be
	// missing, which the alignment step rejects.
	GranularityWord Granularity = "word"
)

// Request holds parameters for a transcription call.
type Request struct {
	// AudioPath is the path to the audio file to transcribe.
	AudioPath string `json:"audio_path"`
	// Language is the expected language (e.g. "en"); empty lets the model detect it.
	Language string `json:"language,omitempty"`
	// Model overrides the backend's configured model.
	Model string `json:"model,omitempty"`
	// Granularity overrides the backend's configured chunk granularity.
	Granularity Granularity `json:"granularity,omitempty"`
}

// Response holds the result of a transcription call.
type Response struct {
	// Text is the full transcript.
	Text string `json:"text"`
	// Chunks are the timestamped chunks in recognizer order.
	Chunks []alignment.Chunk `json:"chunks"`
	// Language is the detected or requested language.
	Language string `json:"language,omitempty"`
	// Duration is the end of the last chunk with a known end, in seconds.
	Duration float64 `json:"duration,omitempty"`
}

// LastEnd returns the largest known chunk end.
func LastEnd(chunks []alignment.Chunk) float64 {
	var end float64
	for _, c := range chunks {
		if c.Timestamp[1] != nil && *c.Timestamp[1] > end {
			end = *c.Timestamp[1]
		}
	}
	return end
}
