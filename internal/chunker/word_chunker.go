package chunker

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"docrag/internal/domain"
)

// WordChunker splits text into overlapping windows of whitespace-delimited
// words. Consecutive windows share exactly overlap words; together they cover
// every word of the input in source order.
type WordChunker struct {
	chunkSize int
	overlap   int
}

// NewWordChunker validates the window parameters. chunkSize must be positive
// and overlap must stay strictly below it, otherwise the stride would not
// advance.
func NewWordChunker(chunkSize, overlap int) (*WordChunker, error) {
	if chunkSize <= 0 {
		return nil, goerr.Wrap(domain.ErrConfig, "chunk size must be positive", goerr.V("chunk_size", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, goerr.Wrap(domain.ErrConfig, "overlap must satisfy 0 <= overlap < chunk size",
			goerr.V("chunk_size", chunkSize), goerr.V("overlap", overlap))
	}
	return &WordChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk windows the document words with a stride of chunkSize-overlap. Each
// window is rejoined with single spaces. An empty trailing window is dropped;
// a document with at most chunkSize words yields a single chunk.
func (c *WordChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	words := strings.Fields(document.Content)
	if len(words) == 0 {
		return nil, nil
	}
	stride := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	for i := 0; i < len(words); i += stride {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ID:         "chunk_" + strconv.Itoa(idx),
			Text:       strings.Join(words[i:end], " "),
			Index:      idx,
		})
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
