package tfidf_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"docrag/internal/embedding/tfidf"
)

func TestPrepareAndEmbed(t *testing.T) {
	e := tfidf.NewEmbedder()
	corpus := []string{
		"cats chase mice around houses",
		"dogs chase cats around gardens",
		"mice hide inside walls",
	}
	gt.NoError(t, e.Prepare(corpus))
	gt.True(t, e.Dimension() > 0)

	vec, err := e.Embed("cats chase mice")
	gt.NoError(t, err)
	gt.A(t, vec).Length(e.Dimension())

	// deterministic for identical input
	again, err := e.Embed("cats chase mice")
	gt.NoError(t, err)
	gt.Equal(t, vec, again)

	// L2 normalized
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	gt.True(t, norm > 0.999 && norm < 1.001)
}

func TestEmbedBeforePrepare(t *testing.T) {
	e := tfidf.NewEmbedder()
	_, err := e.Embed("anything")
	gt.Error(t, err)
}

func TestPrepareEmptyCorpus(t *testing.T) {
	e := tfidf.NewEmbedder()
	gt.Error(t, e.Prepare(nil))
}

func TestEmbedUnknownTokens(t *testing.T) {
	e := tfidf.NewEmbedder()
	gt.NoError(t, e.Prepare([]string{"alpha beta gamma", "beta gamma delta"}))

	vec, err := e.Embed("zzz qqq")
	gt.NoError(t, err)
	for _, v := range vec {
		gt.Equal(t, v, 0.0)
	}
}
