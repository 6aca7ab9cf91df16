package generate

import "context"

// Response is one completed generation. The counts and durations are
// optional backend telemetry; a zero value means the backend did not report
// the field.
type Response struct {
	Content              string
	PromptEvalCount      int
	EvalCount            int
	TotalDurationNS      int64
	LoadDurationNS       int64
	PromptEvalDurationNS int64
	EvalDurationNS       int64
}

// Generator produces an answer for an assembled prompt. It is a capability
// interface so tests can substitute a deterministic fake for the live
// backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
	Model() string
}
