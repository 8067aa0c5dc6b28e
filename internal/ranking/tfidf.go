// Package ranking answers free-text queries by blending TF-IDF lexical
// similarity against paper abstracts with an impact estimate from a
// trained classifier.
//
// The classifier and its feature scaler travel together in one Artifact.
// An Engine reads the artifact through an ArtifactHandle, which can swap
// in a retrained artifact without interrupting in-flight requests.
package ranking

import (
	"math"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// Tokenize lowercases text, splits it on anything that is not a letter or
// digit and drops English stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if english.Contains(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// sparseVector maps term index to weight.
type sparseVector map[int]float64

// TFIDF builds L2-normalized TF-IDF vectors for docs using the smoothed
// idf ln((1+n)/(1+df)) + 1.
func TFIDF(docs []string) []sparseVector {
	vocab := make(map[string]int)
	counts := make([]map[int]int, len(docs))
	df := make(map[int]int)

	for i, doc := range docs {
		tf := make(map[int]int)
		for _, tok := range Tokenize(doc) {
			idx, ok := vocab[tok]
			if !ok {
				idx = len(vocab)
				vocab[tok] = idx
			}
			tf[idx]++
		}
		for idx := range tf {
			df[idx]++
		}
		counts[i] = tf
	}

	n := float64(len(docs))
	idf := make(map[int]float64, len(df))
	for idx, d := range df {
		idf[idx] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vectors := make([]sparseVector, len(docs))
	for i, tf := range counts {
		vec := make(sparseVector, len(tf))
		norm := 0.0
		for idx, c := range tf {
			w := float64(c) * idf[idx]
			vec[idx] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// Cosine returns the cosine similarity of two L2-normalized vectors.
func Cosine(a, b sparseVector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	dot := 0.0
	for idx, w := range a {
		dot += w * b[idx]
	}
	return dot
}

// QuerySimilarities scores every document against query, which is treated
// as document 0 of the vector space.
func QuerySimilarities(query string, docs []string) []float64 {
	all := make([]string, 0, len(docs)+1)
	all = append(all, query)
	all = append(all, docs...)

	vectors := TFIDF(all)
	sims := make([]float64, len(docs))
	for i := range docs {
		sims[i] = Cosine(vectors[0], vectors[i+1])
	}
	return sims
}

// MinMax rescales values to [0, 1]. A constant vector maps to all zeros.
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}
