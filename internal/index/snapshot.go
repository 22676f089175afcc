package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// Snapshot is the serializable form of a fitted Vector. It is a cache: the
// fingerprint ties it to the corpus it was fitted on, and a mismatching
// snapshot is ignored in favor of a refit.
type Snapshot struct {
	Fingerprint string      `msgpack:"fingerprint"`
	MaxFeatures int         `msgpack:"max_features"`
	NGramMax    int         `msgpack:"ngram_max"`
	Terms       []string    `msgpack:"terms"`
	IDF         []float64   `msgpack:"idf"`
	Indices     [][]int32   `msgpack:"indices"`
	Weights     [][]float64 `msgpack:"weights"`
}

// Fingerprint identifies a corpus together with the options it would be
// fitted with.
func Fingerprint(corpus []string, opts Options) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(opts.MaxFeatures))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(opts.NGramMax))
	h.Write(buf[:])
	for _, text := range corpus {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(text)))
		h.Write(buf[:])
		h.Write([]byte(text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot exports the fitted model.
func (v *Vector) Snapshot(fingerprint string) Snapshot {
	s := Snapshot{
		Fingerprint: fingerprint,
		MaxFeatures: v.opts.MaxFeatures,
		NGramMax:    v.opts.NGramMax,
		Terms:       v.terms,
		IDF:         v.idf,
		Indices:     make([][]int32, len(v.docs)),
		Weights:     make([][]float64, len(v.docs)),
	}
	for i, d := range v.docs {
		s.Indices[i] = d.idx
		s.Weights[i] = d.val
	}
	return s
}

// FromSnapshot rebuilds a Vector from a snapshot taken with the same options.
func FromSnapshot(s Snapshot, opts Options) (*Vector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if s.MaxFeatures != opts.MaxFeatures || s.NGramMax != opts.NGramMax {
		return nil, errors.New("snapshot was taken with different options")
	}
	if len(s.Terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(s.IDF) != len(s.Terms) || len(s.Indices) != len(s.Weights) {
		return nil, errors.New("snapshot arrays disagree in length")
	}
	v := &Vector{
		analyzer:   newAnalyzer(opts.NGramMax),
		opts:       opts,
		vocabulary: make(map[string]int, len(s.Terms)),
		terms:      s.Terms,
		idf:        s.IDF,
		docs:       make([]sparseVec, len(s.Indices)),
	}
	for i, term := range s.Terms {
		v.vocabulary[term] = i
	}
	for i := range s.Indices {
		if len(s.Indices[i]) != len(s.Weights[i]) {
			return nil, fmt.Errorf("snapshot document %d is malformed", i)
		}
		for _, idx := range s.Indices[i] {
			if idx < 0 || int(idx) >= len(s.Terms) {
				return nil, fmt.Errorf("snapshot document %d references term %d out of range", i, idx)
			}
		}
		v.docs[i] = sparseVec{idx: s.Indices[i], val: s.Weights[i]}
	}
	return v, nil
}
