package bibliometrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		citations []int
		want      int
	}{
		{name: "classic", citations: []int{10, 8, 5, 4, 3}, want: 4},
		{name: "all zero", citations: []int{0, 0, 0}, want: 0},
		{name: "empty", citations: nil, want: 0},
		{name: "unsorted", citations: []int{3, 0, 6, 1, 5}, want: 3},
		{name: "single cited", citations: []int{100}, want: 1},
		{name: "plateau", citations: []int{4, 4, 4, 4}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HIndex(tt.citations))
		})
	}
}

func TestHIndex_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []int{1, 5, 3}
	HIndex(in)
	assert.Equal(t, []int{1, 5, 3}, in)
}

func TestCitationsPerYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total int
		year  int
		want  float64
	}{
		{name: "published this year", total: 10, year: 2026, want: 10},
		{name: "five years", total: 50, year: 2022, want: 10},
		{name: "unknown year", total: 7, year: 0, want: 7},
		{name: "future year", total: 7, year: 2030, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, CitationsPerYear(tt.total, tt.year, 2026), 1e-9)
		})
	}
}

func TestDenseRank(t *testing.T) {
	t.Parallel()

	ranks := DenseRank([]Scored{
		{ID: 3, Value: 5},
		{ID: 1, Value: 10},
		{ID: 2, Value: 5},
		{ID: 4, Value: 1},
	})

	assert.Equal(t, map[int64]int{1: 1, 2: 2, 3: 2, 4: 3}, ranks)
}

func TestDenseRank_Deterministic(t *testing.T) {
	t.Parallel()

	a := DenseRank([]Scored{{ID: 9, Value: 1}, {ID: 2, Value: 1}, {ID: 5, Value: 2}})
	b := DenseRank([]Scored{{ID: 5, Value: 2}, {ID: 2, Value: 1}, {ID: 9, Value: 1}})
	assert.Equal(t, a, b)
	assert.Empty(t, DenseRank(nil))
}
