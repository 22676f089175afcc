// Package index implements the similarity strategies used to answer top-k
// queries over the chunk corpus: a TF-IDF vector model and a keyword scorer
// that serves whenever no vector model is fitted.
package index

import (
	"errors"
	"fmt"

	"kbase/internal/domain"
)

// SimilarityIndex ranks corpus positions against a query text.
type SimilarityIndex interface {
	// Name identifies the strategy.
	Name() string
	// Query returns at most k hits ordered best first.
	Query(text string, k int) []Hit
	// Len returns the number of indexed documents.
	Len() int
}

// Hit is a ranked corpus position. Lower distance is better.
type Hit struct {
	Position int
	Distance float64
}

// State tells whether a vector model is currently fitted.
type State int

const (
	Untrained State = iota
	Trained
)

func (s State) String() string {
	if s == Trained {
		return "trained"
	}
	return "untrained"
}

// Strategy names.
const (
	StrategyVector  = "tfidf"
	StrategyKeyword = "keyword"
)

// Default vector model parameters.
const (
	DefaultMaxFeatures = 10000
	DefaultNGramMax    = 2
)

// ErrEmptyVocabulary is returned by Fit when no term survives tokenization.
var ErrEmptyVocabulary = errors.New("empty vocabulary; corpus contains only stop words or no tokens")

// ErrEmptyCorpus is returned by Fit for a corpus without documents.
var ErrEmptyCorpus = errors.New("empty corpus")

// Options configures the vector model.
type Options struct {
	// Vector enables the TF-IDF strategy. When false only keyword scoring is
	// used, as if no numeric backend were available.
	Vector bool
	// MaxFeatures caps the vocabulary size.
	MaxFeatures int
	// NGramMax is the longest n-gram added to the vocabulary.
	NGramMax int
}

// DefaultOptions returns the standard vector configuration.
func DefaultOptions() Options {
	return Options{Vector: true, MaxFeatures: DefaultMaxFeatures, NGramMax: DefaultNGramMax}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.MaxFeatures <= 0 {
		return fmt.Errorf("max features must be positive, got %d: %w", o.MaxFeatures, domain.ErrInvalidConfig)
	}
	if o.NGramMax < 1 {
		return fmt.Errorf("ngram max must be at least 1, got %d: %w", o.NGramMax, domain.ErrInvalidConfig)
	}
	return nil
}
