package vectorstore

import "docrag/internal/domain"

// Storage holds one generation of chunk vectors and supports similarity
// search over it. Implementations do not deduplicate ids; callers rebuild a
// generation with Clear followed by a bulk Upsert.
type Storage interface {
	Init(dimension int) error
	Upsert(chunks []domain.Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]domain.SearchResult, error)
	Count() (int, error)
	Clear() error
}
