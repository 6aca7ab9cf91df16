package chunker_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"docrag/internal/chunker"
	"docrag/internal/domain"
)

func TestSentenceChunkerOverlap(t *testing.T) {
	c := chunker.NewSentenceChunker(2, 1)
	doc := domain.Document{ID: "doc", Content: "One. Two! Three? Four."}

	chunks, err := c.Chunk(doc)
	gt.NoError(t, err)
	gt.A(t, chunks).Length(3)
	gt.Equal(t, chunks[0].Text, "One. Two!")
	gt.Equal(t, chunks[1].Text, "Two! Three?")
	gt.Equal(t, chunks[2].Text, "Three? Four.")
	gt.Equal(t, chunks[2].ID, "chunk_2")
}

func TestSentenceChunkerNoTerminator(t *testing.T) {
	c := chunker.NewSentenceChunker(3, 0)
	doc := domain.Document{ID: "doc", Content: "no sentence terminator here"}

	chunks, err := c.Chunk(doc)
	gt.NoError(t, err)
	gt.A(t, chunks).Length(1)
	gt.Equal(t, chunks[0].Text, "no sentence terminator here")
}

func TestSentenceChunkerEmpty(t *testing.T) {
	c := chunker.NewSentenceChunker(3, 1)

	chunks, err := c.Chunk(domain.Document{ID: "doc", Content: "  \n "})
	gt.NoError(t, err)
	gt.A(t, chunks).Length(0)
}
