// Package index ties an embedder to a vector store and manages one live
// generation of indexed chunks. A generation is rebuilt by ClearAndRecreate
// followed by a single bulk Add; queries never observe a partial rebuild
// because Add touches the store only after every chunk embedded cleanly.
package index

import (
	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/vectorstore"
)

// Index is the session-scoped vector index over one document's chunks.
type Index struct {
	name     string
	embedder embedding.Embedder
	store    vectorstore.Storage
	count    int
}

// New creates an index with the given collection name. The name is purely an
// identifier surfaced in stats and logs.
func New(name string, embedder embedding.Embedder, store vectorstore.Storage) *Index {
	return &Index{name: name, embedder: embedder, store: store}
}

// Name returns the collection identifier.
func (ix *Index) Name() string { return ix.name }

// Count returns the number of chunks in the current generation.
func (ix *Index) Count() int { return ix.count }

// Add embeds every chunk and inserts them into the store as one generation.
// Ids must be unique within the call; the index does not deduplicate. Any
// embedding failure aborts before the store is touched, so a failed Add
// leaves the generation unchanged.
func (ix *Index) Add(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	if err := ix.embedder.Prepare(texts); err != nil {
		return goerr.Wrap(err, "cannot prepare embedder", goerr.V("chunks", len(chunks)))
	}

	vectors := make([][]float64, len(chunks))
	for i, ch := range chunks {
		vec, err := ix.embedder.Embed(ch.Text)
		if err != nil {
			return goerr.Wrap(err, "cannot embed chunk", goerr.V("chunk_id", ch.ID))
		}
		vectors[i] = vec
	}

	if ix.count == 0 {
		if err := ix.store.Init(ix.embedder.Dimension()); err != nil {
			return goerr.Wrap(err, "cannot initialize vector store")
		}
	}
	if err := ix.store.Upsert(chunks, vectors); err != nil {
		return goerr.Wrap(err, "cannot insert chunks")
	}
	ix.count += len(chunks)
	return nil
}

// Query embeds the text and returns up to topK chunks ordered by descending
// similarity. Fewer indexed chunks than topK yields all of them.
func (ix *Index) Query(text string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, goerr.New("topK must be positive", goerr.V("top_k", topK))
	}
	if ix.count == 0 {
		return nil, nil
	}
	vec, err := ix.embedder.Embed(text)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot embed query")
	}
	results, err := ix.store.Search(vec, topK)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed")
	}
	return results, nil
}

// ClearAndRecreate discards the current generation entirely and starts a new
// empty one.
func (ix *Index) ClearAndRecreate() error {
	if err := ix.store.Clear(); err != nil {
		return goerr.Wrap(err, "cannot clear vector store")
	}
	ix.count = 0
	return nil
}
