package index

import (
	"math"
	"sort"
)

// Vector is a TF-IDF model fitted over a fixed corpus, with one L2-normalized
// sparse weight vector per document. A Vector is immutable after Fit and safe
// for concurrent queries.
type Vector struct {
	analyzer   *analyzer
	opts       Options
	vocabulary map[string]int
	terms      []string
	idf        []float64
	docs       []sparseVec
}

type sparseVec struct {
	idx []int32
	val []float64
}

var _ SimilarityIndex = (*Vector)(nil)

// Fit builds the vocabulary and document vectors for corpus.
func Fit(corpus []string, opts Options) (*Vector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	an := newAnalyzer(opts.NGramMax)

	// Term counts per document, document frequencies and corpus frequencies.
	counts := make([]map[string]int, len(corpus))
	df := make(map[string]int)
	total := make(map[string]int)
	for i, text := range corpus {
		c := make(map[string]int)
		for _, term := range an.terms(text) {
			c[term]++
		}
		for term, n := range c {
			df[term]++
			total[term] += n
		}
		counts[i] = c
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	// Create stable ordering for vocabulary
	sort.Strings(terms)

	v := &Vector{
		analyzer:   an,
		opts:       opts,
		vocabulary: make(map[string]int, len(terms)),
		terms:      terms,
		idf:        make([]float64, len(terms)),
		docs:       make([]sparseVec, len(corpus)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		// Smoothed IDF
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	for i, c := range counts {
		v.docs[i] = v.weigh(c)
	}
	return v, nil
}

// Name returns the strategy name.
func (v *Vector) Name() string { return StrategyVector }

// Len returns the number of fitted documents.
func (v *Vector) Len() int { return len(v.docs) }

// Dimension returns the vocabulary size.
func (v *Vector) Dimension() int { return len(v.terms) }

// Query scores every document by cosine similarity to text and returns the k
// most similar. Equal scores keep corpus order. Distance is 1 - similarity.
func (v *Vector) Query(text string, k int) []Hit {
	if k <= 0 || len(v.docs) == 0 {
		return nil
	}
	q := v.project(text)
	scores := make([]float64, len(v.docs))
	for i, d := range v.docs {
		scores[i] = dot(d, q)
	}
	order := argsortDesc(scores)
	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = Hit{Position: j, Distance: 1 - scores[j]}
	}
	return hits
}

// project embeds text into the fitted space as a sparse term->weight map.
func (v *Vector) project(text string) map[int32]float64 {
	c := make(map[string]int)
	for _, term := range v.analyzer.terms(text) {
		c[term]++
	}
	sv := v.weigh(c)
	q := make(map[int32]float64, len(sv.idx))
	for i, idx := range sv.idx {
		q[idx] = sv.val[i]
	}
	return q
}

func (v *Vector) weigh(counts map[string]int) sparseVec {
	var sv sparseVec
	for term, n := range counts {
		idx, ok := v.vocabulary[term]
		if !ok {
			continue
		}
		sv.idx = append(sv.idx, int32(idx))
		sv.val = append(sv.val, float64(n)*v.idf[idx])
	}
	sort.Sort(byIndex(sv))
	// L2 normalize
	norm := 0.0
	for _, w := range sv.val {
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range sv.val {
			sv.val[i] /= norm
		}
	}
	return sv
}

type byIndex sparseVec

func (b byIndex) Len() int           { return len(b.idx) }
func (b byIndex) Less(i, j int) bool { return b.idx[i] < b.idx[j] }
func (b byIndex) Swap(i, j int) {
	b.idx[i], b.idx[j] = b.idx[j], b.idx[i]
	b.val[i], b.val[j] = b.val[j], b.val[i]
}

func dot(d sparseVec, q map[int32]float64) float64 {
	if len(q) == 0 {
		return 0
	}
	sum := 0.0
	for i, idx := range d.idx {
		if w, ok := q[idx]; ok {
			sum += d.val[i] * w
		}
	}
	return sum
}

// argsortDesc orders positions by descending score, keeping corpus order
// among equal scores.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
