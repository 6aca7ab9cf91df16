package chunker

import "docrag/internal/domain"

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document domain.Document) ([]domain.Chunk, error)
}
