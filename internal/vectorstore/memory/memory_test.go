package memory_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"docrag/internal/domain"
	"docrag/internal/vectorstore/memory"
)

func TestSearchOrdering(t *testing.T) {
	s := memory.NewStorage()
	gt.NoError(t, s.Init(2))

	chunks := []domain.Chunk{
		{ID: "chunk_0", Index: 0, Text: "a"},
		{ID: "chunk_1", Index: 1, Text: "b"},
		{ID: "chunk_2", Index: 2, Text: "c"},
	}
	vectors := [][]float64{
		{1, 0},
		{0, 1},
		{0.7, 0.7},
	}
	gt.NoError(t, s.Upsert(chunks, vectors))

	n, err := s.Count()
	gt.NoError(t, err)
	gt.Equal(t, n, 3)

	res, err := s.Search([]float64{1, 0}, 5)
	gt.NoError(t, err)
	gt.A(t, res).Length(3) // never more than count
	gt.Equal(t, res[0].Chunk.ID, "chunk_0")
	gt.Equal(t, res[1].Chunk.ID, "chunk_2")
	gt.Equal(t, res[2].Chunk.ID, "chunk_1")
	gt.True(t, res[0].Score >= res[1].Score)
	gt.True(t, res[1].Score >= res[2].Score)

	res, err = s.Search([]float64{1, 0}, 2)
	gt.NoError(t, err)
	gt.A(t, res).Length(2)
}

func TestSearchTieBreakIsInsertionOrder(t *testing.T) {
	s := memory.NewStorage()
	gt.NoError(t, s.Init(2))

	chunks := []domain.Chunk{
		{ID: "chunk_0", Index: 0},
		{ID: "chunk_1", Index: 1},
	}
	// identical vectors, identical scores
	gt.NoError(t, s.Upsert(chunks, [][]float64{{1, 1}, {1, 1}}))

	for i := 0; i < 5; i++ {
		res, err := s.Search([]float64{1, 1}, 2)
		gt.NoError(t, err)
		gt.Equal(t, res[0].Chunk.ID, "chunk_0")
		gt.Equal(t, res[1].Chunk.ID, "chunk_1")
	}
}

func TestClearResetsGeneration(t *testing.T) {
	s := memory.NewStorage()
	gt.NoError(t, s.Init(2))
	gt.NoError(t, s.Upsert([]domain.Chunk{{ID: "chunk_0"}}, [][]float64{{1, 0}}))

	gt.NoError(t, s.Clear())
	n, err := s.Count()
	gt.NoError(t, err)
	gt.Equal(t, n, 0)

	res, err := s.Search([]float64{1, 0}, 3)
	gt.NoError(t, err)
	gt.A(t, res).Length(0)
}

func TestUpsertValidation(t *testing.T) {
	s := memory.NewStorage()
	gt.NoError(t, s.Init(2))

	gt.Error(t, s.Upsert([]domain.Chunk{{ID: "chunk_0"}}, nil))
	gt.Error(t, s.Upsert([]domain.Chunk{{ID: "chunk_0"}}, [][]float64{{1, 0, 0}}))
	gt.Error(t, s.Init(0))
}
