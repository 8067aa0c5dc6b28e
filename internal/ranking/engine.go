package ranking

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// Weights are the tunable blend constants.
type Weights struct {
	SimilarityWeight float64
	ImpactWeight     float64
	// MinSimilarity is the normalized similarity below which a paper is
	// never returned.
	MinSimilarity float64
}

// DefaultWeights returns the 0.7 / 0.3 blend with a 0.1 similarity floor.
func DefaultWeights() Weights {
	return Weights{SimilarityWeight: 0.7, ImpactWeight: 0.3, MinSimilarity: 0.1}
}

// RankedPaper is one result row.
type RankedPaper struct {
	PaperID         int64   `json:"paper_id"`
	Title           string  `json:"title"`
	Authors         string  `json:"authors"`
	Abstract        string  `json:"abstract"`
	PDFURL          string  `json:"pdf_url"`
	PublicationYear int     `json:"publication_year"`
	Journal         string  `json:"journal"`
	TotalCitations  int     `json:"total_citations"`
	Similarity      float64 `json:"similarity"`
	Impact          float64 `json:"impact"`
	Score           float64 `json:"score"`
}

// Result is the outcome of one Rank call. NoResults is set when the corpus
// is empty or nothing passed the similarity floor.
type Result struct {
	Query      string        `json:"query"`
	Papers     []RankedPaper `json:"papers"`
	NoResults  bool          `json:"no_results"`
	CorpusSize int           `json:"corpus_size"`
	RunID      string        `json:"model_run_id"`
}

// Engine ranks the stored corpus against free-text queries.
type Engine struct {
	reader  repository.CorpusReader
	handle  *ArtifactHandle
	weights Weights
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewEngine creates a ranking engine. It fails when the handle carries no
// verified artifact. metrics may be nil.
func NewEngine(reader repository.CorpusReader, handle *ArtifactHandle, weights Weights, metrics *observability.Metrics, logger zerolog.Logger) (*Engine, error) {
	if handle == nil || handle.Current() == nil {
		return nil, fmt.Errorf("%w: no artifact loaded", domain.ErrArtifactMissing)
	}
	if err := handle.Current().Verify(); err != nil {
		return nil, err
	}
	return &Engine{
		reader:  reader,
		handle:  handle,
		weights: weights,
		logger:  logger.With().Str("component", "ranking").Logger(),
		metrics: metrics,
	}, nil
}

// Handle returns the artifact handle so callers can trigger a reload.
func (e *Engine) Handle() *ArtifactHandle {
	return e.handle
}

// Rank scores every paper against query and returns at most limit papers,
// most relevant first.
func (e *Engine) Rank(ctx context.Context, query string, limit int) (*Result, error) {
	start := time.Now()
	result, err := e.rank(ctx, query, limit)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		e.metrics.RecordRank("error", 0, elapsed)
	case result.NoResults:
		e.metrics.RecordRank("no_results", 0, elapsed)
	default:
		e.metrics.RecordRank("ok", len(result.Papers), elapsed)
	}
	return result, err
}

func (e *Engine) rank(ctx context.Context, query string, limit int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if limit < 1 {
		return nil, domain.NewValidationError("limit", "must be at least 1")
	}

	// One artifact for the whole call even if a reload lands mid-request.
	artifact := e.handle.Current()
	result := &Result{Query: query, RunID: artifact.RunID}

	rows, err := e.reader.LoadRankingRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	result.CorpusSize = len(rows)
	if len(rows) == 0 {
		result.NoResults = true
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abstracts := make([]string, len(rows))
	features := make([][]float64, len(rows))
	for i, r := range rows {
		abstracts[i] = r.Abstract
		features[i] = r.Features
	}

	raw := QuerySimilarities(query, abstracts)
	impacts, err := artifact.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("predict impact: %w", err)
	}
	sims := normalizeSimilarity(raw)
	impacts = MinMax(impacts)

	papers := make([]RankedPaper, 0, len(rows))
	for i, r := range rows {
		if raw[i] <= 0 || sims[i] < e.weights.MinSimilarity {
			continue
		}
		papers = append(papers, RankedPaper{
			PaperID:         r.PaperID,
			Title:           r.Title,
			Authors:         r.AuthorsDisplay(),
			Abstract:        r.Abstract,
			PDFURL:          r.PDFURL,
			PublicationYear: r.PublicationYear,
			Journal:         r.Journal,
			TotalCitations:  r.TotalCitations,
			Similarity:      sims[i],
			Impact:          impacts[i],
			Score:           e.weights.SimilarityWeight*sims[i] + e.weights.ImpactWeight*impacts[i],
		})
	}

	slices.SortStableFunc(papers, func(a, b RankedPaper) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.PaperID, b.PaperID)
	})
	if len(papers) > limit {
		papers = papers[:limit]
	}

	result.Papers = papers
	result.NoResults = len(papers) == 0

	e.logger.Debug().
		Str("query", query).
		Int("corpus", len(rows)).
		Int("results", len(papers)).
		Msg("ranked query")
	return result, nil
}

// normalizeSimilarity min-max scales raw cosines. When every paper matches
// equally the scaled vector would be all zeros, so each gets 1 instead.
func normalizeSimilarity(raw []float64) []float64 {
	sims := MinMax(raw)
	if len(raw) == 0 || raw[0] <= 0 {
		return sims
	}
	for _, v := range raw[1:] {
		if v != raw[0] {
			return sims
		}
	}
	for i := range sims {
		sims[i] = 1
	}
	return sims
}
