package index

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword scores documents by query-word containment. It needs no fitting
// and is used whenever the vector model is unavailable.
//
// Each query word found in a document scores 2 when it appears as a
// whitespace-delimited word and 1 when it only appears as a substring. The
// final score blends volume and density:
//
//	final = 0.7*raw + 0.3*raw/words
//
// Hits are ordered by exact-match count, then by final score. Distance is
// 1 - final and is not normalized, so dense matches can go below zero.
type Keyword struct {
	docs []keywordDoc
}

type keywordDoc struct {
	lower  string
	padded string
	words  map[string]struct{}
	count  int
}

var _ SimilarityIndex = (*Keyword)(nil)

// NewKeyword prepares corpus for keyword scoring.
func NewKeyword(corpus []string) *Keyword {
	k := &Keyword{docs: make([]keywordDoc, len(corpus))}
	for i, text := range corpus {
		lower := strings.ToLower(text)
		fields := strings.Fields(lower)
		words := make(map[string]struct{}, len(fields))
		for _, f := range fields {
			words[f] = struct{}{}
		}
		k.docs[i] = keywordDoc{
			lower:  lower,
			padded: " " + strings.Join(fields, " ") + " ",
			words:  words,
			count:  len(fields),
		}
	}
	return k
}

// Name returns the strategy name.
func (k *Keyword) Name() string { return StrategyKeyword }

// Len returns the number of documents.
func (k *Keyword) Len() int { return len(k.docs) }

type keywordScore struct {
	pos   int
	exact int
	score float64
}

// Query returns up to n documents with a non-zero score.
func (k *Keyword) Query(text string, n int) []Hit {
	if n <= 0 || len(k.docs) == 0 {
		return nil
	}
	words := queryWords(text)
	if len(words) == 0 {
		return nil
	}
	var scored []keywordScore
	for i, d := range k.docs {
		raw, exact := 0, 0
		for _, w := range words {
			switch {
			case d.exact(w):
				exact++
				raw += 2
			case strings.Contains(d.lower, w):
				raw++
			}
		}
		if raw == 0 {
			continue
		}
		density := 0.0
		if d.count > 0 {
			density = float64(raw) / float64(d.count)
		}
		scored = append(scored, keywordScore{pos: i, exact: exact, score: float64(raw)*0.7 + density*0.3})
	}
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].exact != scored[b].exact {
			return scored[a].exact > scored[b].exact
		}
		return scored[a].score > scored[b].score
	})
	if n > len(scored) {
		n = len(scored)
	}
	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Position: scored[i].pos, Distance: 1 - scored[i].score}
	}
	return hits
}

// exact reports whether w occurs bounded by whitespace. Multi-word tokens
// are matched against the whitespace-normalized text.
func (d keywordDoc) exact(w string) bool {
	if strings.ContainsFunc(w, unicode.IsSpace) {
		return strings.Contains(d.padded, " "+w+" ")
	}
	_, ok := d.words[w]
	return ok
}

// queryWords returns the lowercase query words longer than two characters,
// or the whole whitespace-normalized query when none qualify.
func queryWords(text string) []string {
	lower := strings.ToLower(text)
	var words []string
	for _, w := range strings.Fields(lower) {
		if utf8.RuneCountInString(w) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		if whole := strings.Join(strings.Fields(lower), " "); whole != "" {
			words = []string{whole}
		}
	}
	return words
}
