package ranking

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

type fakeReader struct {
	rows []repository.RankingRow
	err  error
}

func (f *fakeReader) LoadRankingRows(context.Context) ([]repository.RankingRow, error) {
	return f.rows, f.err
}

// testArtifact returns a sealed artifact over every feature with an
// identity scaler and the given weights.
func testArtifact(t *testing.T, weights []float64) *Artifact {
	t.Helper()
	n := len(repository.FeatureNames)
	if weights == nil {
		weights = make([]float64, n)
	}
	require.Len(t, weights, n)

	a := &Artifact{
		Version:  ArtifactVersion,
		RunID:    "run-1",
		Features: slices.Clone(repository.FeatureNames),
		Kept:     make([]int, n),
		Scaler:   &Scaler{Mean: make([]float64, n), Std: make([]float64, n)},
		Model:    &LogisticModel{Weights: weights},
	}
	for i := range n {
		a.Kept[i] = i
		a.Scaler.Std[i] = 1
	}
	a.Seal()
	require.NoError(t, a.Verify())
	return a
}

func row(id int64, abstract string) repository.RankingRow {
	return repository.RankingRow{
		PaperID:  id,
		Title:    "paper",
		Abstract: abstract,
		Authors:  []string{"Ada Lovelace", "Alan Turing"},
		Features: make([]float64, len(repository.FeatureNames)),
	}
}

func newTestEngine(t *testing.T, rows []repository.RankingRow, artifact *Artifact) *Engine {
	t.Helper()
	handle, err := NewStaticHandle(artifact)
	require.NoError(t, err)
	engine, err := NewEngine(&fakeReader{rows: rows}, handle, DefaultWeights(), nil, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func ids(papers []RankedPaper) []int64 {
	out := make([]int64, len(papers))
	for i, p := range papers {
		out[i] = p.PaperID
	}
	return out
}

func TestEngine_Rank_FiltersUnrelatedAbstracts(t *testing.T) {
	engine := newTestEngine(t, []repository.RankingRow{
		row(1, "neural network training"),
		row(2, "gradient descent optimization"),
		row(3, "cooking recipes"),
	}, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "neural network", 10)
	require.NoError(t, err)
	assert.False(t, res.NoResults)
	assert.Equal(t, 3, res.CorpusSize)
	assert.Equal(t, []int64{1}, ids(res.Papers))
	assert.Equal(t, "Ada Lovelace, Alan Turing", res.Papers[0].Authors)
}

func TestEngine_Rank_HigherSimilarityFirst(t *testing.T) {
	engine := newTestEngine(t, []repository.RankingRow{
		row(1, "neural network training"),
		row(2, "neural gradient descent optimization"),
		row(3, "cooking recipes"),
	}, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "neural network", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids(res.Papers))

	// Impact is constant so it normalizes to 0 and only similarity counts.
	assert.InDelta(t, 1.0, res.Papers[0].Similarity, 1e-9)
	assert.InDelta(t, 0.7, res.Papers[0].Score, 1e-9)
	assert.Greater(t, res.Papers[1].Similarity, 0.1)
	assert.Less(t, res.Papers[1].Score, res.Papers[0].Score)
	assert.Zero(t, res.Papers[1].Impact)
}

func TestEngine_Rank_ZeroOverlap(t *testing.T) {
	engine := newTestEngine(t, []repository.RankingRow{
		row(1, "neural network training"),
		row(2, "gradient descent optimization"),
	}, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "medieval pottery", 5)
	require.NoError(t, err)
	assert.True(t, res.NoResults)
	assert.Empty(t, res.Papers)
}

func TestEngine_Rank_EmptyCorpus(t *testing.T) {
	engine := newTestEngine(t, nil, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.True(t, res.NoResults)
	assert.Zero(t, res.CorpusSize)
}

func TestEngine_Rank_ImpactBreaksLexicalTies(t *testing.T) {
	weights := make([]float64, len(repository.FeatureNames))
	weights[len(weights)-1] = 1 // total_citations

	low := row(1, "graph neural network")
	high := row(2, "graph neural network")
	high.Features[len(high.Features)-1] = 3
	engine := newTestEngine(t, []repository.RankingRow{low, high, row(3, "unrelated text")}, testArtifact(t, weights))

	res, err := engine.Rank(context.Background(), "graph network", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 1}, ids(res.Papers))
	assert.InDelta(t, 1.0, res.Papers[0].Score, 1e-9)
	assert.InDelta(t, 0.7, res.Papers[1].Score, 1e-9)
}

func TestEngine_Rank_Limit(t *testing.T) {
	rows := []repository.RankingRow{
		row(3, "protein folding"),
		row(1, "protein folding"),
		row(2, "protein folding"),
	}
	engine := newTestEngine(t, rows, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "protein", 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(res.Papers))
}

func TestEngine_Rank_InvalidInput(t *testing.T) {
	engine := newTestEngine(t, nil, testArtifact(t, nil))

	tests := []struct {
		name  string
		query string
		limit int
	}{
		{name: "blank query", query: "   ", limit: 5},
		{name: "zero limit", query: "q", limit: 0},
		{name: "negative limit", query: "q", limit: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Rank(context.Background(), tt.query, tt.limit)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestEngine_Rank_ReaderError(t *testing.T) {
	handle, err := NewStaticHandle(testArtifact(t, nil))
	require.NoError(t, err)
	engine, err := NewEngine(&fakeReader{err: errors.New("connection reset")}, handle, DefaultWeights(), nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = engine.Rank(context.Background(), "query", 5)
	assert.ErrorContains(t, err, "connection reset")
}

func TestNewEngine_RequiresArtifact(t *testing.T) {
	_, err := NewEngine(&fakeReader{}, nil, DefaultWeights(), nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)

	_, err = NewEngine(&fakeReader{}, &ArtifactHandle{}, DefaultWeights(), nil, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestEngine_Rank_SingleMatchingPaper(t *testing.T) {
	engine := newTestEngine(t, []repository.RankingRow{row(7, "sparse attention")}, testArtifact(t, nil))

	res, err := engine.Rank(context.Background(), "attention", 3)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids(res.Papers))
	assert.InDelta(t, 0.7, res.Papers[0].Score, 1e-9)
}

func TestNormalizeSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []float64
		want []float64
	}{
		{name: "empty", raw: nil, want: []float64{}},
		{name: "spread", raw: []float64{0.2, 0.6, 0}, want: []float64{1.0 / 3, 1, 0}},
		{name: "all equal positive", raw: []float64{0.4, 0.4}, want: []float64{1, 1}},
		{name: "all zero", raw: []float64{0, 0}, want: []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeSimilarity(tt.raw)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}
