package index

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestActive_StartsUntrained(t *testing.T) {
	a := NewActive(DefaultOptions(), quietLogger())

	assert.Equal(t, Untrained, a.State())
	assert.Equal(t, StrategyKeyword, a.Name())
	assert.Empty(t, a.Query("anything", 5))
	_, ok := a.Snapshot()
	assert.False(t, ok)
}

func TestActive_RebuildTrains(t *testing.T) {
	a := NewActive(DefaultOptions(), quietLogger())
	a.Rebuild([]string{"syntax and semantics", "phonetics lab"})

	assert.Equal(t, Trained, a.State())
	assert.Equal(t, StrategyVector, a.Name())
	assert.Equal(t, 2, a.Len())

	hits := a.Query("phonetics", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Position)
}

func TestActive_RebuildEmptyCorpusUntrains(t *testing.T) {
	a := NewActive(DefaultOptions(), quietLogger())
	a.Rebuild([]string{"syntax and semantics"})
	require.Equal(t, Trained, a.State())

	a.Rebuild(nil)
	assert.Equal(t, Untrained, a.State())
	assert.Empty(t, a.Query("syntax", 5))
}

func TestActive_FitFailureFallsBackToKeyword(t *testing.T) {
	a := NewActive(DefaultOptions(), quietLogger())
	a.Rebuild([]string{"the and of", "it is"})

	assert.Equal(t, Untrained, a.State())
	assert.Equal(t, StrategyKeyword, a.Name())
	assert.Equal(t, []int{0}, positions(a.Query("the", 5)))
}

func TestActive_VectorDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Vector = false
	a := NewActive(opts, quietLogger())
	a.Rebuild([]string{"cats are pets", "the big dog barks", "cats and dogs"})

	assert.Equal(t, Untrained, a.State())
	assert.Equal(t, []int{0, 2}, positions(a.Query("cats", 5)))
}

func TestActive_SingleDocumentBothStrategies(t *testing.T) {
	for _, vector := range []bool{true, false} {
		opts := DefaultOptions()
		opts.Vector = vector
		a := NewActive(opts, quietLogger())
		a.Rebuild([]string{"only one chunk of text"})
		assert.LessOrEqual(t, len(a.Query("anything", 5)), 1, "vector=%v", vector)
	}
}

func TestActive_RestoreFromSnapshot(t *testing.T) {
	corpus := []string{"syntax and semantics", "phonetics lab"}
	a := NewActive(DefaultOptions(), quietLogger())
	a.Rebuild(corpus)
	snap, ok := a.Snapshot()
	require.True(t, ok)

	b := NewActive(DefaultOptions(), quietLogger())
	assert.True(t, b.Restore(snap, corpus))
	assert.Equal(t, Trained, b.State())
	assert.Equal(t, a.Query("semantics", 2), b.Query("semantics", 2))

	c := NewActive(DefaultOptions(), quietLogger())
	assert.False(t, c.Restore(snap, append(corpus, "new chunk")))
	assert.Equal(t, Untrained, c.State())
}

func TestActive_Reset(t *testing.T) {
	a := NewActive(DefaultOptions(), quietLogger())
	a.Rebuild([]string{"syntax and semantics"})
	a.Reset()

	assert.Equal(t, Untrained, a.State())
	assert.Equal(t, 0, a.Len())
}
