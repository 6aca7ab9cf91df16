package domain

import "time"

// Document is a single source text loaded into the system. It is immutable
// once extracted and consumed exactly once by the chunker.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded contiguous span of document text treated as one
// retrievable unit. IDs are unique and stable within one index generation.
type Chunk struct {
	DocumentID string
	ID         string
	Text       string
	Index      int
}

// SearchResult is a matching chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Telemetry holds the token counts and timings reported by the inference
// backend for one generate call. All durations come back in nanoseconds.
type Telemetry struct {
	PromptTokens       int
	ResponseTokens     int
	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration
}

// TotalTokens returns the combined prompt and response token count.
func (t Telemetry) TotalTokens() int { return t.PromptTokens + t.ResponseTokens }

// Answer is the result of answering one question against the index. When the
// backend call fails, Text carries an error description, Failed is set and
// Telemetry is nil; the caller still gets a complete, loggable result.
type Answer struct {
	Text         string
	ContextChars int
	PromptChars  int
	Retrieved    int
	Telemetry    *Telemetry
	Failed       bool
}
