package index_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"docrag/internal/domain"
	"docrag/internal/index"
	"docrag/internal/vectorstore/memory"
)

// hashEmbedder maps each word to a fixed vocabulary slot; deterministic and
// cheap, no preparation needed.
type hashEmbedder struct {
	failEmbed bool
}

func (e *hashEmbedder) Name() string                  { return "hash" }
func (e *hashEmbedder) Prepare(corpus []string) error { return nil }
func (e *hashEmbedder) Dimension() int                { return 8 }

func (e *hashEmbedder) Embed(text string) ([]float64, error) {
	if e.failEmbed {
		return nil, goerr.Wrap(domain.ErrEmbedding, "forced failure")
	}
	vec := make([]float64, 8)
	for _, w := range strings.Fields(text) {
		h := 0
		for _, r := range w {
			h = h*31 + int(r)
		}
		vec[((h%8)+8)%8]++
	}
	return vec, nil
}

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, s := range texts {
		out[i] = domain.Chunk{ID: "chunk_" + strconv.Itoa(i), Index: i, Text: s}
	}
	return out
}

func TestAddAndCount(t *testing.T) {
	ix := index.New("test", &hashEmbedder{}, memory.NewStorage())
	gt.Equal(t, ix.Count(), 0)

	gt.NoError(t, ix.Add(chunksOf("alpha beta", "gamma delta", "epsilon")))
	gt.Equal(t, ix.Count(), 3)

	gt.NoError(t, ix.ClearAndRecreate())
	gt.Equal(t, ix.Count(), 0)
}

func TestQueryBounds(t *testing.T) {
	ix := index.New("test", &hashEmbedder{}, memory.NewStorage())
	gt.NoError(t, ix.Add(chunksOf("alpha beta", "gamma delta", "epsilon zeta")))

	// more requested than indexed: all three come back, ranked
	res, err := ix.Query("alpha", 5)
	gt.NoError(t, err)
	gt.A(t, res).Length(3)
	for i := 1; i < len(res); i++ {
		gt.True(t, res[i-1].Score >= res[i].Score)
	}

	res, err = ix.Query("alpha", 2)
	gt.NoError(t, err)
	gt.A(t, res).Length(2)

	_, err = ix.Query("alpha", 0)
	gt.Error(t, err)
}

func TestQueryEmptyGeneration(t *testing.T) {
	ix := index.New("test", &hashEmbedder{}, memory.NewStorage())

	res, err := ix.Query("anything", 5)
	gt.NoError(t, err)
	gt.A(t, res).Length(0)
}

func TestRebuildIsIdempotent(t *testing.T) {
	texts := []string{"alpha beta gamma", "delta epsilon", "zeta eta theta", "iota kappa"}

	build := func() *index.Index {
		ix := index.New("test", &hashEmbedder{}, memory.NewStorage())
		gt.NoError(t, ix.ClearAndRecreate())
		gt.NoError(t, ix.Add(chunksOf(texts...)))
		return ix
	}

	a := build()
	b := build()

	resA, err := a.Query("alpha kappa", 4)
	gt.NoError(t, err)
	resB, err := b.Query("alpha kappa", 4)
	gt.NoError(t, err)

	gt.Equal(t, len(resA), len(resB))
	for i := range resA {
		gt.Equal(t, resA[i].Chunk.ID, resB[i].Chunk.ID)
	}
}

func TestFailedAddLeavesGenerationUnchanged(t *testing.T) {
	emb := &hashEmbedder{}
	store := memory.NewStorage()
	ix := index.New("test", emb, store)
	gt.NoError(t, ix.Add(chunksOf("alpha", "beta")))

	emb.failEmbed = true
	gt.Error(t, ix.Add(chunksOf("gamma")))
	gt.Equal(t, ix.Count(), 2)

	n, err := store.Count()
	gt.NoError(t, err)
	gt.Equal(t, n, 2)
}
