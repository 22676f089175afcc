package index

import (
	"log/slog"
	"sync/atomic"
)

// Active holds the similarity strategy currently serving queries and moves
// between the Untrained and Trained states as the corpus is rebuilt. Fit
// failures are logged and degrade to keyword scoring; they are never
// returned to callers. Readers always observe a complete strategy.
type Active struct {
	opts Options
	log  *slog.Logger
	cur  atomic.Pointer[current]
}

type current struct {
	index       SimilarityIndex
	vector      *Vector
	fingerprint string
}

var _ SimilarityIndex = (*Active)(nil)

// NewActive returns an Untrained holder over an empty corpus.
func NewActive(opts Options, log *slog.Logger) *Active {
	if log == nil {
		log = slog.Default()
	}
	a := &Active{opts: opts, log: log}
	a.Reset()
	return a
}

// Rebuild refits the strategy over the full corpus.
func (a *Active) Rebuild(corpus []string) {
	if len(corpus) == 0 {
		a.Reset()
		return
	}
	if !a.opts.Vector {
		a.log.Debug("vector index disabled, using keyword scoring", "documents", len(corpus))
		a.cur.Store(&current{index: NewKeyword(corpus)})
		return
	}
	v, err := Fit(corpus, a.opts)
	if err != nil {
		a.log.Warn("vector index fit failed, falling back to keyword scoring", "documents", len(corpus), "error", err)
		a.cur.Store(&current{index: NewKeyword(corpus)})
		return
	}
	a.log.Debug("vector index fitted", "documents", len(corpus), "terms", v.Dimension())
	a.cur.Store(&current{index: v, vector: v, fingerprint: Fingerprint(corpus, a.opts)})
}

// Restore installs a cached vector model if it was fitted over exactly this
// corpus. It reports whether the cache was used.
func (a *Active) Restore(s Snapshot, corpus []string) bool {
	if !a.opts.Vector || len(corpus) == 0 {
		return false
	}
	fp := Fingerprint(corpus, a.opts)
	if s.Fingerprint != fp {
		a.log.Debug("index cache is stale", "documents", len(corpus))
		return false
	}
	v, err := FromSnapshot(s, a.opts)
	if err != nil {
		a.log.Warn("index cache unusable", "error", err)
		return false
	}
	if v.Len() != len(corpus) {
		a.log.Warn("index cache document count mismatch", "cached", v.Len(), "documents", len(corpus))
		return false
	}
	a.cur.Store(&current{index: v, vector: v, fingerprint: fp})
	return true
}

// Reset drops any fitted model.
func (a *Active) Reset() {
	a.cur.Store(&current{index: NewKeyword(nil)})
}

// Query delegates to the current strategy.
func (a *Active) Query(text string, k int) []Hit {
	return a.cur.Load().index.Query(text, k)
}

// State reports whether a vector model is fitted.
func (a *Active) State() State {
	if a.cur.Load().vector != nil {
		return Trained
	}
	return Untrained
}

// Name returns the name of the current strategy.
func (a *Active) Name() string { return a.cur.Load().index.Name() }

// Len returns the number of indexed documents.
func (a *Active) Len() int { return a.cur.Load().index.Len() }

// Snapshot exports the fitted model for caching. ok is false when Untrained.
func (a *Active) Snapshot() (s Snapshot, ok bool) {
	c := a.cur.Load()
	if c.vector == nil {
		return Snapshot{}, false
	}
	return c.vector.Snapshot(c.fingerprint), true
}
