// Package engine answers one question at a time against the current index
// generation, producing a grounded answer and a complete audit record.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
	"docrag/internal/generate"
	"docrag/internal/logging"
	"docrag/internal/querylog"
)

// Retriever is the index-facing subset the engine needs.
type Retriever interface {
	Query(text string, topK int) ([]domain.SearchResult, error)
}

// promptTemplate is a design contract: the backend sees the document context
// block, the literal question, then the answer cue, always in that order.
const promptTemplate = `Based on the following context from the document, please answer the question.

Context:
%s

Question: %s

Answer:`

// Engine orchestrates retrieval, prompt assembly, the backend call and the
// audit log write.
type Engine struct {
	retriever Retriever
	generator generate.Generator
	log       *querylog.Logger
	source    string
}

// New wires the engine. source identifies the indexed document in audit
// records.
func New(retriever Retriever, generator generate.Generator, log *querylog.Logger, source string) *Engine {
	return &Engine{retriever: retriever, generator: generator, log: log, source: source}
}

// Answer retrieves up to nResults chunks, forwards question and context to
// the backend and writes exactly one audit record. Backend failures are
// converted into an error-text answer and never fail the call; the returned
// error is non-nil only when the audit record itself could not be written.
func (e *Engine) Answer(ctx context.Context, question string, nResults int) (domain.Answer, error) {
	logger := logging.From(ctx)

	var contextTexts []string
	results, err := e.retriever.Query(question, nResults)
	if err != nil {
		// a failed retrieval degrades to an empty context block
		logger.Warn("retrieval failed, answering with empty context", "error", err)
		results = nil
	}
	for _, r := range results {
		contextTexts = append(contextTexts, r.Chunk.Text)
	}
	contextBlock := strings.Join(contextTexts, "\n\n")
	prompt := fmt.Sprintf(promptTemplate, contextBlock, question)

	answer := domain.Answer{
		ContextChars: len(contextBlock),
		PromptChars:  len(prompt),
		Retrieved:    len(results),
	}

	resp, genErr := e.generator.Generate(ctx, prompt)
	if genErr != nil {
		answer.Text = fmt.Sprintf("Error querying model: %v", genErr)
		answer.Failed = true
		logger.Warn("backend call failed", "error", genErr)
	} else {
		answer.Text = resp.Content
		answer.Telemetry = &domain.Telemetry{
			PromptTokens:       resp.PromptEvalCount,
			ResponseTokens:     resp.EvalCount,
			TotalDuration:      time.Duration(resp.TotalDurationNS),
			LoadDuration:       time.Duration(resp.LoadDurationNS),
			PromptEvalDuration: time.Duration(resp.PromptEvalDurationNS),
			EvalDuration:       time.Duration(resp.EvalDurationNS),
		}
	}

	if _, err := e.log.Write(&querylog.Record{
		Event:    "query",
		Model:    e.generator.Model(),
		Question: question,
		Response: answer.Text,
		Metadata: querylog.Metadata{
			ContextLengthChars: answer.ContextChars,
			PromptLengthChars:  answer.PromptChars,
			ChunksRetrieved:    answer.Retrieved,
			Source:             e.source,
		},
		TokenDetails: querylog.FromTelemetry(answer.Telemetry),
	}); err != nil {
		return answer, goerr.Wrap(err, "answer produced but audit record was lost",
			goerr.V("question", question))
	}

	return answer, nil
}

// RecordIndexing writes the audit record for one completed indexing pass.
func (e *Engine) RecordIndexing(chunkCount int) error {
	_, err := e.log.Write(&querylog.Record{
		Event:    "index",
		Model:    e.generator.Model(),
		Response: fmt.Sprintf("indexed %d chunks", chunkCount),
		Metadata: querylog.Metadata{
			ChunksIndexed: chunkCount,
			Source:        e.source,
		},
	})
	return err
}
