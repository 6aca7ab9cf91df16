package summarizer_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"docrag/internal/summarizer"
)

func TestSummarizePicksFrequentTopics(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	text := "Routers forward packets. Routers drop malformed packets. " +
		"Yesterday someone ate lunch. Packets carry routing headers."

	out, err := s.Summarize(text, 2)
	gt.NoError(t, err)

	sentences := strings.Count(out, ".")
	gt.Equal(t, sentences, 2)
	gt.S(t, out).Contains("packets")
}

func TestSummarizeFewerSentencesThanRequested(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()

	out, err := s.Summarize("Only one sentence here.", 5)
	gt.NoError(t, err)
	gt.Equal(t, out, "Only one sentence here.")
}

func TestSummarizeNoTerminators(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()

	out, err := s.Summarize("  fragment without punctuation  ", 3)
	gt.NoError(t, err)
	gt.Equal(t, out, "fragment without punctuation")
}

func TestSummarizeKeepsSourceOrder(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	text := "Alpha systems boot first. Noise noise irrelevant. Alpha systems shut down last."

	out, err := s.Summarize(text, 2)
	gt.NoError(t, err)
	gt.True(t, strings.Index(out, "boot first") < strings.Index(out, "shut down last"))
}
