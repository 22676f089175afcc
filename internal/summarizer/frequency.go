package summarizer

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"

	"kbase/internal/domain"
	"kbase/internal/index"
)

// DefaultMaxSentences is used when a caller asks for fewer than one sentence.
const DefaultMaxSentences = 3

var (
	wordPattern      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceBoundary = regexp.MustCompile(`([.!?])\s+|\n\s*\n`)
)

// Frequency is an extractive summarizer: sentences are ranked by the
// normalized frequency of their content words and the best ones are
// returned in their original order.
type Frequency struct{}

var _ domain.Summarizer = Frequency{}

func NewFrequency() Frequency { return Frequency{} }

// Summarize returns at most maxSentences sentences of text.
func (Frequency) Summarize(text string, maxSentences int) (string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "", nil
	}
	return strings.Join(pick(sentences, nil, maxSentences), " "), nil
}

// Digest condenses search results into a short extract. Sentences repeated
// across overlapping chunks are counted once, and sentences mentioning query
// words are preferred.
func Digest(query string, results []domain.SearchResult, maxSentences int) string {
	seen := make(map[string]bool)
	var sentences []string
	for _, r := range results {
		for _, s := range splitSentences(r.Content) {
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	focus := make(map[string]bool)
	for _, w := range contentWords(query) {
		focus[w] = true
	}
	return strings.Join(pick(sentences, focus, maxSentences), " ")
}

func pick(sentences []string, focus map[string]bool, maxSentences int) []string {
	if maxSentences < 1 {
		maxSentences = DefaultMaxSentences
	}
	words := make([][]string, len(sentences))
	freq := make(map[string]float64)
	for i, s := range sentences {
		words[i] = contentWords(s)
		for _, w := range words[i] {
			freq[w]++
		}
	}
	top := 0.0
	for _, v := range freq {
		top = max(top, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, ws := range words {
		score := 0.0
		for _, w := range ws {
			score += freq[w] / top
			if focus[w] {
				score++
			}
		}
		if len(ws) > 0 {
			score /= math.Sqrt(float64(len(ws)))
		}
		ranked[i] = scored{i, score}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return cmp.Compare(b.score, a.score) })

	n := min(maxSentences, len(ranked))
	chosen := make([]int, n)
	for i := range n {
		chosen[i] = ranked[i].idx
	}
	slices.Sort(chosen)
	out := make([]string, n)
	for i, idx := range chosen {
		out[i] = sentences[idx]
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	add := func(s string) {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			out = append(out, s)
		}
	}
	last := 0
	for _, m := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		end := m[0]
		if m[2] >= 0 {
			end = m[3]
		}
		add(text[last:end])
		last = m[1]
	}
	add(text[last:])
	return out
}

func contentWords(text string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, w := range raw {
		if len(w) > 1 && !index.IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}
