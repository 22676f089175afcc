package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/domain"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one.  Second\nline? Third!\n\nHeading\n\nTrailing fragment")
	assert.Equal(t, []string{"First one.", "Second line?", "Third!", "Heading", "Trailing fragment"}, got)
	assert.Empty(t, splitSentences("  \n "))
}

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "Vectors rank documents. The weather was nice. " +
		"Sparse vectors rank documents quickly. Lunch was late."

	out, err := NewFrequency().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Vectors rank documents. Sparse vectors rank documents quickly.", out)
}

func TestSummarize_Bounds(t *testing.T) {
	out, err := NewFrequency().Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = NewFrequency().Summarize("Only one sentence here", 5)
	require.NoError(t, err)
	assert.Equal(t, "Only one sentence here", out)

	text := strings.Repeat("Alpha beta gamma. ", 2) + "Delta epsilon. Zeta eta. Theta iota."
	out, err = NewFrequency().Summarize(text, 0)
	require.NoError(t, err)
	assert.Len(t, splitSentences(out), DefaultMaxSentences)
}

func TestDigest(t *testing.T) {
	results := []domain.SearchResult{
		{Content: "Cats sleep a lot. Cats purr when content."},
		{Content: "Cats purr when content. Dogs bark at strangers."},
		{Content: "Birds sing in the morning."},
	}

	out := Digest("why do cats purr", results, 1)
	assert.Equal(t, "Cats purr when content.", out)

	all := Digest("cats", results, 10)
	assert.Equal(t, 1, strings.Count(all, "Cats purr when content."), "repeated sentences appear once")
	assert.Len(t, splitSentences(all), 4)
}

func TestDigest_Empty(t *testing.T) {
	assert.Empty(t, Digest("anything", nil, 3))
	assert.Empty(t, Digest("anything", []domain.SearchResult{{Content: "   "}}, 3))
}
