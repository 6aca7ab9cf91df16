package embedding

// Embedder converts free text into a numeric vector representation. The
// output must be deterministic for identical input so that retrieval stays
// reproducible within a session. Implementations may require a preparation
// phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}
