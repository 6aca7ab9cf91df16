// Package session is the interactive REPL state machine. Input handling is
// a pure state transition with results as plain values, so every failure
// path is testable without a terminal attached.
package session

import (
	"context"
	"strings"

	"docrag/internal/domain"
)

// State of the session lifecycle. Terminated is final.
type State int

const (
	Idle State = iota
	Ready
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Kind classifies the outcome of handling one input line.
type Kind int

const (
	// Noop: empty input, nothing happened, no log entry.
	Noop Kind = iota
	// Answered: the input was treated as a question and answered (the
	// answer may be an error description; the session stays ready).
	Answered
	// Stats: read-only index report, no log entry.
	Stats
	// Quit: the session moved to Terminated.
	Quit
)

// Result is the outcome of one Handle call.
type Result struct {
	Kind       Kind
	Answer     domain.Answer
	ChunkCount int
	Collection string
	Model      string
	// LogErr reports a failed audit write for an otherwise answered
	// question. Never fatal; the caller should surface it.
	LogErr error
}

// Answerer is the engine-facing capability the session needs.
type Answerer interface {
	Answer(ctx context.Context, question string, nResults int) (domain.Answer, error)
}

// IndexInfo is the read-only view of the index used by the stats command.
type IndexInfo interface {
	Name() string
	Count() int
}

// Machine drives one interactive session over an indexed document.
type Machine struct {
	state    State
	engine   Answerer
	index    IndexInfo
	model    string
	nResults int
}

// New creates a machine in the Idle state.
func New(engine Answerer, index IndexInfo, model string, nResults int) *Machine {
	return &Machine{state: Idle, engine: engine, index: index, model: model, nResults: nResults}
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Start moves Idle to Ready once the index is built. Starting a terminated
// or already ready machine is a no-op.
func (m *Machine) Start() {
	if m.state == Idle {
		m.state = Ready
	}
}

// Terminate is the external interrupt path: final from any state.
func (m *Machine) Terminate() {
	m.state = Terminated
}

// Handle processes one line of input. Commands quit/exit/q and stats are
// matched case-insensitively; any other non-empty line is a question. The
// machine stays Ready after an answer regardless of backend success.
func (m *Machine) Handle(ctx context.Context, line string) Result {
	if m.state != Ready {
		return Result{Kind: Noop}
	}

	input := strings.TrimSpace(line)
	if input == "" {
		return Result{Kind: Noop}
	}

	switch strings.ToLower(input) {
	case "quit", "exit", "q":
		m.state = Terminated
		return Result{Kind: Quit}
	case "stats":
		return Result{
			Kind:       Stats,
			ChunkCount: m.index.Count(),
			Collection: m.index.Name(),
			Model:      m.model,
		}
	}

	answer, err := m.engine.Answer(ctx, input, m.nResults)
	return Result{Kind: Answered, Answer: answer, LogErr: err}
}
