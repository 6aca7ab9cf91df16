package engine_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"docrag/internal/domain"
	"docrag/internal/engine"
	"docrag/internal/generate"
	"docrag/internal/querylog"
)

type fakeRetriever struct {
	results []domain.SearchResult
	err     error
}

func (f *fakeRetriever) Query(text string, topK int) ([]domain.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK > len(f.results) {
		topK = len(f.results)
	}
	return f.results[:topK], nil
}

type fakeGenerator struct {
	resp    *generate.Response
	err     error
	prompts []string
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*generate.Response, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newLogger(t *testing.T) *querylog.Logger {
	t.Helper()
	l, err := querylog.New(t.TempDir())
	gt.NoError(t, err)
	return l
}

func logRecords(t *testing.T, l *querylog.Logger) []map[string]any {
	t.Helper()
	entries, err := os.ReadDir(l.Dir())
	gt.NoError(t, err)
	var out []map[string]any
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(l.Dir(), e.Name()))
		gt.NoError(t, err)
		var rec map[string]any
		gt.NoError(t, json.Unmarshal(data, &rec))
		out = append(out, rec)
	}
	return out
}

func results(texts ...string) []domain.SearchResult {
	var out []domain.SearchResult
	for i, s := range texts {
		out = append(out, domain.SearchResult{
			Chunk: domain.Chunk{ID: "chunk_" + string(rune('0'+i)), Index: i, Text: s},
			Score: 1.0 - float64(i)*0.1,
		})
	}
	return out
}

func TestAnswerSuccess(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{resp: &generate.Response{
		Content:         "the answer",
		PromptEvalCount: 120,
		EvalCount:       30,
		TotalDurationNS: 1_000_000_000,
		EvalDurationNS:  800_000_000,
	}}
	e := engine.New(&fakeRetriever{results: results("first chunk", "second chunk")}, gen, log, "doc.txt")

	ans, err := e.Answer(context.Background(), "what is this?", 5)
	gt.NoError(t, err)
	gt.Equal(t, ans.Text, "the answer")
	gt.False(t, ans.Failed)
	gt.Equal(t, ans.Retrieved, 2)
	gt.NotNil(t, ans.Telemetry)
	gt.Equal(t, ans.Telemetry.PromptTokens, 120)

	// context joins ranked chunks with a blank line
	gt.Equal(t, ans.ContextChars, len("first chunk\n\nsecond chunk"))
	gt.True(t, ans.PromptChars > ans.ContextChars)

	recs := logRecords(t, log)
	gt.A(t, recs).Length(1)
	gt.Equal(t, recs[0]["event"], "query")
	gt.Equal(t, recs[0]["response"], "the answer")
	gt.Map(t, recs[0]).HasKey("token_details")
}

func TestPromptTemplate(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{resp: &generate.Response{Content: "ok"}}
	e := engine.New(&fakeRetriever{results: results("ctx one", "ctx two")}, gen, log, "doc.txt")

	_, err := e.Answer(context.Background(), "the question?", 2)
	gt.NoError(t, err)

	gt.A(t, gen.prompts).Length(1)
	prompt := gen.prompts[0]
	// three-part structure: context block, literal question, answer cue
	gt.S(t, prompt).Contains("Context:\nctx one\n\nctx two")
	gt.S(t, prompt).Contains("Question: the question?")
	gt.True(t, strings.HasSuffix(prompt, "Answer:"))

	ctxPos := strings.Index(prompt, "Context:")
	qPos := strings.Index(prompt, "Question:")
	aPos := strings.Index(prompt, "Answer:")
	gt.True(t, ctxPos < qPos && qPos < aPos)
}

func TestAnswerBackendFailure(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{err: goerr.Wrap(domain.ErrBackend, "connection refused")}
	e := engine.New(&fakeRetriever{results: results("chunk")}, gen, log, "doc.txt")

	ans, err := e.Answer(context.Background(), "q", 5)
	gt.NoError(t, err) // backend failure is not fatal
	gt.True(t, ans.Failed)
	gt.S(t, ans.Text).Contains("Error querying model")
	gt.Nil(t, ans.Telemetry)

	recs := logRecords(t, log)
	gt.A(t, recs).Length(1)
	_, hasDetails := recs[0]["token_details"]
	gt.False(t, hasDetails)
}

func TestAnswerEmptyContext(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{resp: &generate.Response{Content: "no context answer"}}
	e := engine.New(&fakeRetriever{}, gen, log, "doc.txt")

	ans, err := e.Answer(context.Background(), "q", 5)
	gt.NoError(t, err)
	gt.Equal(t, ans.ContextChars, 0)
	gt.Equal(t, ans.Retrieved, 0)
	gt.Equal(t, ans.Text, "no context answer")

	// the prompt still went out with an empty context block
	gt.A(t, gen.prompts).Length(1)
	gt.S(t, gen.prompts[0]).Contains("Context:\n\n")
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{resp: &generate.Response{Content: "still answered"}}
	e := engine.New(&fakeRetriever{err: goerr.Wrap(domain.ErrEmbedding, "embed down")}, gen, log, "doc.txt")

	ans, err := e.Answer(context.Background(), "q", 5)
	gt.NoError(t, err)
	gt.False(t, ans.Failed)
	gt.Equal(t, ans.Retrieved, 0)
	gt.Equal(t, ans.Text, "still answered")

	recs := logRecords(t, log)
	gt.A(t, recs).Length(1)
}

func TestEveryAnswerWritesOneRecord(t *testing.T) {
	log := newLogger(t)
	gen := &fakeGenerator{resp: &generate.Response{Content: "a"}}
	e := engine.New(&fakeRetriever{results: results("chunk")}, gen, log, "doc.txt")

	for i := 0; i < 3; i++ {
		_, err := e.Answer(context.Background(), "q", 1)
		gt.NoError(t, err)
	}
	gen.err = goerr.New("boom")
	_, err := e.Answer(context.Background(), "q", 1)
	gt.NoError(t, err)

	recs := logRecords(t, log)
	gt.A(t, recs).Length(4)
}

func TestRecordIndexing(t *testing.T) {
	log := newLogger(t)
	e := engine.New(&fakeRetriever{}, &fakeGenerator{}, log, "doc.txt")

	gt.NoError(t, e.RecordIndexing(42))

	recs := logRecords(t, log)
	gt.A(t, recs).Length(1)
	gt.Equal(t, recs[0]["event"], "index")
	meta := recs[0]["metadata"].(map[string]any)
	gt.Equal(t, meta["chunks_indexed"], 42.0)
}
