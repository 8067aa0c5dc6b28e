// Package bibliometrics recomputes derived statistics over the whole
// reconciled corpus: per-paper citation rates and ranks, per-author and
// per-journal h-indices with their deltas, and coauthor PageRank.
//
// The engine is a batch job. It reads one consistent snapshot, computes
// everything in memory and writes results back in chunks, each chunk in
// its own transaction.
package bibliometrics

import (
	"slices"
)

// HIndex returns the largest h such that h of the given citation counts
// are each at least h.
func HIndex(citations []int) int {
	sorted := slices.Clone(citations)
	slices.SortFunc(sorted, func(a, b int) int { return b - a })

	h := 0
	for i, c := range sorted {
		if c < i+1 {
			break
		}
		h = i + 1
	}
	return h
}

// CitationsPerYear divides total by the number of calendar years since
// publication, inclusive. Unknown or future years fall back to total.
func CitationsPerYear(total, publicationYear, currentYear int) float64 {
	if publicationYear <= 0 {
		return float64(total)
	}
	years := currentYear - publicationYear + 1
	if years <= 0 {
		return float64(total)
	}
	return float64(total) / float64(years)
}

// Scored is a paper id with its citations-per-year value.
type Scored struct {
	ID    int64
	Value float64
}

// DenseRank ranks items by value descending; equal values share a rank and
// the next distinct value gets the next integer. Ties are ordered by id so
// the result is deterministic.
func DenseRank(items []Scored) map[int64]int {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Scored) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	ranks := make(map[int64]int, len(sorted))
	rank := 0
	for i, item := range sorted {
		if i == 0 || item.Value != sorted[i-1].Value {
			rank++
		}
		ranks[item.ID] = rank
	}
	return ranks
}
