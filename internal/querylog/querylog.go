// Package querylog is the append-only audit trail: one JSON document per
// indexing pass or answered question, written before control returns to the
// session. Records are immutable once published.
package querylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
)

// Timing mirrors the backend-reported durations, kept both in nanoseconds
// and in seconds for human readers.
type Timing struct {
	TotalDurationNS      int64   `json:"total_duration_ns"`
	LoadDurationNS       int64   `json:"load_duration_ns"`
	PromptEvalDurationNS int64   `json:"prompt_eval_duration_ns"`
	EvalDurationNS       int64   `json:"eval_duration_ns"`
	TotalDurationSec     float64 `json:"total_duration_sec"`
	EvalDurationSec      float64 `json:"eval_duration_sec"`
}

// TokenDetails carries the per-call token telemetry; absent from the record
// when the backend failed or did not report it.
type TokenDetails struct {
	PromptTokens   int    `json:"prompt_tokens"`
	ResponseTokens int    `json:"response_tokens"`
	TotalTokens    int    `json:"total_tokens"`
	Timing         Timing `json:"timing"`
}

// Metadata describes the context the prompt was assembled from.
type Metadata struct {
	ContextLengthChars int    `json:"context_length_chars"`
	PromptLengthChars  int    `json:"prompt_length_chars"`
	ChunksRetrieved    int    `json:"chunks_retrieved,omitempty"`
	ChunksIndexed      int    `json:"chunks_indexed,omitempty"`
	Source             string `json:"source"`
}

// Record is one audit event. Event is "query" or "index".
type Record struct {
	Timestamp    string        `json:"timestamp"`
	Event        string        `json:"event"`
	Model        string        `json:"model"`
	Question     string        `json:"question,omitempty"`
	Response     string        `json:"response"`
	Metadata     Metadata      `json:"metadata"`
	TokenDetails *TokenDetails `json:"token_details,omitempty"`
}

// Logger writes records into a per-session directory. Filenames are
// timestamp-prefixed with nanosecond precision plus a process-wide sequence
// number, so two events in the same wall-clock second never collide and a
// lexical sort is a chronological sort.
type Logger struct {
	dir string
	seq atomic.Uint64
	now func() time.Time
}

// New creates the session log directory under root and returns a logger
// bound to it.
func New(root string) (*Logger, error) {
	dir := filepath.Join(root, fmt.Sprintf("session_%s_%s",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(domain.ErrLogWrite, "cannot create log directory", goerr.V("dir", dir))
	}
	return &Logger{dir: dir, now: time.Now}, nil
}

// Dir returns the session log directory.
func (l *Logger) Dir() string { return l.dir }

// Write publishes one record and returns the path of the created file. The
// record is staged in a temporary file and renamed into place, so a reader
// never observes a partial document.
func (l *Logger) Write(rec *Record) (string, error) {
	now := l.now()
	if rec.Timestamp == "" {
		rec.Timestamp = now.Format(time.RFC3339Nano)
	}
	event := rec.Event
	if event == "" {
		event = "query"
	}
	name := fmt.Sprintf("%s_%s_%04d.json", event,
		now.Format("20060102_150405.000000000"), l.seq.Add(1))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", goerr.Wrap(domain.ErrLogWrite, "cannot marshal record")
	}

	path := filepath.Join(l.dir, name)
	tmp, err := os.CreateTemp(l.dir, name+".tmp")
	if err != nil {
		return "", goerr.Wrap(domain.ErrLogWrite, "cannot create staging file", goerr.V("dir", l.dir))
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", goerr.Wrap(domain.ErrLogWrite, "cannot write staging file", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", goerr.Wrap(domain.ErrLogWrite, "cannot close staging file", goerr.V("path", tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", goerr.Wrap(domain.ErrLogWrite, "cannot publish record", goerr.V("path", path))
	}
	return path, nil
}

// FromTelemetry converts backend telemetry into the record representation.
func FromTelemetry(tel *domain.Telemetry) *TokenDetails {
	if tel == nil {
		return nil
	}
	return &TokenDetails{
		PromptTokens:   tel.PromptTokens,
		ResponseTokens: tel.ResponseTokens,
		TotalTokens:    tel.TotalTokens(),
		Timing: Timing{
			TotalDurationNS:      tel.TotalDuration.Nanoseconds(),
			LoadDurationNS:       tel.LoadDuration.Nanoseconds(),
			PromptEvalDurationNS: tel.PromptEvalDuration.Nanoseconds(),
			EvalDurationNS:       tel.EvalDuration.Nanoseconds(),
			TotalDurationSec:     tel.TotalDuration.Seconds(),
			EvalDurationSec:      tel.EvalDuration.Seconds(),
		},
	}
}
