package bibliometrics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// DefaultChunkSize is the number of entities written per transaction.
const DefaultChunkSize = 500

// Config tunes the engine.
type Config struct {
	ChunkSize int
	PageRank  PageRankConfig
}

// DefaultConfig returns the default chunk size and PageRank settings.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, PageRank: DefaultPageRankConfig()}
}

// Counts tallies one entity pass.
type Counts struct {
	// Updated entities were written successfully.
	Updated int
	// Skipped entities failed to compute and were not written.
	Skipped int
	// Failed entities belonged to a chunk whose write failed.
	Failed int
}

// PageRankSummary describes the coauthor PageRank pass.
type PageRankSummary struct {
	Authors    int
	Iterations int
	// Applied is false when graph construction, iteration or the write
	// failed. No score is changed in that case.
	Applied bool
	Error   string
}

// Summary reports a full recomputation.
type Summary struct {
	CurrentYear int
	Authors     Counts
	Papers      Counts
	Journals    Counts
	PageRank    PageRankSummary
	Duration    time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to determine the current year.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine recomputes corpus-wide bibliometric statistics.
// It is not safe to run concurrently with itself or with ingestion.
type Engine struct {
	store   repository.MetricsStore
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewEngine creates an engine over store.
func NewEngine(store repository.MetricsStore, cfg Config, logger zerolog.Logger, opts ...Option) *Engine {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.PageRank == (PageRankConfig{}) {
		cfg.PageRank = DefaultPageRankConfig()
	}
	e := &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "bibliometrics").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecomputeAll runs the author, paper, journal and PageRank passes over a
// single snapshot. Per-entity computation failures and per-chunk write
// failures are counted in the summary; only a failed snapshot read or a
// cancelled context returns an error.
func (e *Engine) RecomputeAll(ctx context.Context) (*Summary, error) {
	start := e.now()
	summary := &Summary{CurrentYear: start.Year()}
	logger := observability.LoggerFromContext(ctx, e.logger)

	err := e.recompute(ctx, summary, logger)
	summary.Duration = e.now().Sub(start)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	e.metrics.RecordMetricsRun(status, summary.Duration.Seconds())
	e.metrics.RecordEntitiesSkipped("author", summary.Authors.Skipped)
	e.metrics.RecordEntitiesSkipped("paper", summary.Papers.Skipped)
	e.metrics.RecordEntitiesSkipped("journal", summary.Journals.Skipped)

	logger.Info().
		Int("authors_updated", summary.Authors.Updated).
		Int("authors_skipped", summary.Authors.Skipped).
		Int("papers_updated", summary.Papers.Updated).
		Int("papers_skipped", summary.Papers.Skipped).
		Int("journals_updated", summary.Journals.Updated).
		Bool("pagerank_applied", summary.PageRank.Applied).
		Int("pagerank_iterations", summary.PageRank.Iterations).
		Dur("duration", summary.Duration).
		Str("status", status).
		Msg("metrics recomputation finished")

	return summary, err
}

func (e *Engine) recompute(ctx context.Context, summary *Summary, logger zerolog.Logger) error {
	snap, err := e.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	c := indexSnapshot(snap)
	year := summary.CurrentYear

	// Authors
	authorUpdates := make([]repository.AuthorMetricsUpdate, 0, len(snap.Authors))
	for _, stat := range snap.Authors {
		m, err := computeAuthor(c, stat, year)
		if err != nil {
			summary.Authors.Skipped++
			logger.Warn().Err(err).Int64("author_id", stat.ID).Msg("author skipped")
			continue
		}
		authorUpdates = append(authorUpdates, repository.AuthorMetricsUpdate{AuthorID: stat.ID, Metrics: m})
	}
	if err := writeChunks(ctx, e, "author", authorUpdates, &summary.Authors, e.store.WriteAuthorMetrics); err != nil {
		return err
	}

	// Papers
	paperUpdates, errs := computePapers(snap.Papers, year)
	for _, err := range errs {
		logger.Warn().Err(err).Msg("paper skipped")
	}
	summary.Papers.Skipped = len(errs)
	if err := writeChunks(ctx, e, "paper", paperUpdates, &summary.Papers, e.store.WritePaperMetrics); err != nil {
		return err
	}

	// Journals
	journalUpdates := make([]repository.JournalMetricsUpdate, 0, len(snap.Journals))
	for _, stat := range snap.Journals {
		m, err := computeJournal(c, stat)
		if err != nil {
			summary.Journals.Skipped++
			logger.Warn().Err(err).Int64("journal_id", stat.ID).Msg("journal skipped")
			continue
		}
		journalUpdates = append(journalUpdates, repository.JournalMetricsUpdate{JournalID: stat.ID, Metrics: m})
	}
	if err := writeChunks(ctx, e, "journal", journalUpdates, &summary.Journals, e.store.WriteJournalMetrics); err != nil {
		return err
	}

	// Coauthor PageRank, all or nothing.
	summary.PageRank = e.pagerank(ctx, snap)
	if !summary.PageRank.Applied {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Error().Str("reason", summary.PageRank.Error).Msg("coauthor pagerank not applied")
	}
	e.metrics.RecordPageRankIterations(summary.PageRank.Iterations)
	return nil
}

func (e *Engine) pagerank(ctx context.Context, snap *repository.Snapshot) PageRankSummary {
	authors := make([]int64, 0, len(snap.Authors))
	for _, a := range snap.Authors {
		authors = append(authors, a.ID)
	}

	g, err := BuildCoauthorGraph(authors, snap.Authorships)
	if err != nil {
		return PageRankSummary{Error: err.Error()}
	}
	scores, iterations, err := PageRank(g, e.cfg.PageRank)
	if err != nil {
		return PageRankSummary{Iterations: iterations, Error: err.Error()}
	}
	if err := e.store.WriteCoauthorPageRank(ctx, scores); err != nil {
		return PageRankSummary{Iterations: iterations, Error: err.Error()}
	}
	return PageRankSummary{Authors: len(scores), Iterations: iterations, Applied: true}
}

// writeChunks writes updates in chunks of the configured size. A failed
// chunk is counted and the next chunk is attempted.
func writeChunks[T any](ctx context.Context, e *Engine, entity string, updates []T, counts *Counts, write func(context.Context, []T) error) error {
	for chunk := range slices.Chunk(updates, e.cfg.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(ctx, chunk); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			counts.Failed += len(chunk)
			e.logger.Error().Err(err).Str("entity", entity).Int("chunk_size", len(chunk)).Msg("metrics chunk write failed")
			continue
		}
		counts.Updated += len(chunk)
	}
	return nil
}
