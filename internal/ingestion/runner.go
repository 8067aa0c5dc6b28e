// Package ingestion drives source records into the reconciliation store.
//
// A Runner pulls raw records from a papersources.RecordReader, maps them
// with the source's Adapter and writes each record (journal, paper,
// authors, concepts, citation edges) in its own transaction. A bad record
// is counted and skipped; only a broken input stream or a cancelled
// context stops a run.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/papersources"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// Config controls write throughput and fan-out.
type Config struct {
	// RecordsPerSecond caps store writes. Zero or negative means unlimited.
	RecordsPerSecond float64
	// Burst is the token bucket size.
	Burst int
	// Concurrency bounds how many inputs IngestAll processes at once.
	Concurrency int
	// EnrichBatchSize is the page size of enrichment sweeps.
	EnrichBatchSize int
}

// Runner ingests records and runs enrichment sweeps.
type Runner struct {
	tx          repository.Transactor
	limiter     *papersources.RateLimiter
	metrics     *observability.Metrics
	logger      zerolog.Logger
	concurrency int
	batchSize   int
}

// NewRunner creates a Runner writing through tx. metrics may be nil.
func NewRunner(tx repository.Transactor, cfg Config, metrics *observability.Metrics, logger zerolog.Logger) *Runner {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	batchSize := cfg.EnrichBatchSize
	if batchSize < 1 {
		batchSize = 500
	}
	if batchSize > 1000 {
		batchSize = 1000
	}
	return &Runner{
		tx:          tx,
		limiter:     papersources.NewRateLimiter(cfg.RecordsPerSecond, cfg.Burst),
		metrics:     metrics,
		logger:      logger.With().Str("component", "ingestion").Logger(),
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

// Job is one input for IngestAll.
type Job struct {
	// Name labels the input in logs, usually its file path.
	Name    string
	Adapter papersources.Adapter
	Reader  papersources.RecordReader
}

// Ingest consumes reader until io.EOF and returns the outcome counts. The
// returned report is non-nil even when an error stops the run early.
func (r *Runner) Ingest(ctx context.Context, adapter papersources.Adapter, reader papersources.RecordReader) (*Report, error) {
	source := adapter.Source()
	report := &Report{Source: source}
	logger := observability.LoggerFromContext(ctx, r.logger).With().Str("source", string(source)).Logger()
	start := time.Now()

	err := r.consume(ctx, adapter, reader, report, logger)
	report.Duration = time.Since(start)

	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.metrics.RecordIngestionRun(string(source), status, report.Duration.Seconds())

	logger.Info().
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("skipped_no_identity", report.SkippedNoIdentity).
		Int("skipped_error", report.SkippedError).
		Int("citations", report.Citations).
		Dur("duration", report.Duration).
		Str("status", status).
		Msg("ingestion finished")

	return report, err
}

func (r *Runner) consume(ctx context.Context, adapter papersources.Adapter, reader papersources.RecordReader, report *Report, logger zerolog.Logger) error {
	for position := 1; ; position++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s record %d: %w", adapter.Source(), position, err)
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		outcome, citations, err := r.ingestRecord(ctx, adapter, raw)
		report.add(outcome)
		report.Citations += citations
		r.metrics.RecordRecord(string(adapter.Source()), string(outcome))

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Warn().Err(err).Int("record", position).Str("outcome", string(outcome)).Msg("record skipped")
		}
	}
}

// ingestRecord maps raw and writes it. The returned outcome is always set.
func (r *Runner) ingestRecord(ctx context.Context, adapter papersources.Adapter, raw []byte) (domain.Outcome, int, error) {
	record, err := adapter.Map(raw)
	if err != nil {
		return classify(err), 0, err
	}
	if !record.Paper.HasIdentity() {
		err := domain.NewIdentityError("paper", record.Paper.Title)
		return domain.OutcomeSkippedNoIdentity, 0, err
	}

	var (
		inserted  bool
		citations int
	)
	err = r.tx.InTx(ctx, func(store repository.Store) error {
		var txErr error
		inserted, citations, txErr = writeRecord(ctx, store, record)
		return txErr
	})
	if err != nil {
		return classify(err), 0, err
	}
	if inserted {
		return domain.OutcomeInserted, citations, nil
	}
	return domain.OutcomeUpdated, citations, nil
}

// writeRecord stores one mapped record: journal first so the paper can
// reference it, then the paper, its authors, concepts and citation edges.
func writeRecord(ctx context.Context, store repository.Store, record *domain.Record) (bool, int, error) {
	paper := record.Paper
	if paper.Source == "" {
		paper.Source = record.Source
	}

	if record.Journal != "" {
		journal := &domain.Journal{Name: record.Journal, ISSN: record.JournalISSN}
		up, err := store.UpsertJournal(ctx, journal)
		if err != nil {
			return false, 0, fmt.Errorf("upsert journal: %w", err)
		}
		paper.JournalID = up.ID
	}

	up, err := store.UpsertPaper(ctx, &paper)
	if err != nil {
		return false, 0, fmt.Errorf("upsert paper: %w", err)
	}

	for i, ref := range record.Authors {
		author := &domain.Author{Name: ref.Name, Affiliation: ref.Affiliation}
		a, err := store.UpsertAuthor(ctx, author)
		if err != nil {
			return false, 0, fmt.Errorf("upsert author %q: %w", ref.Name, err)
		}
		if err := store.LinkPaperAuthor(ctx, up.ID, a.ID, i+1); err != nil {
			return false, 0, fmt.Errorf("link author %q: %w", ref.Name, err)
		}
	}

	for _, ref := range record.Concepts {
		concept := &domain.Concept{ExternalID: ref.ExternalID, Name: ref.Name}
		c, err := store.UpsertConcept(ctx, concept)
		if err != nil {
			return false, 0, fmt.Errorf("upsert concept %q: %w", concept.Key(), err)
		}
		if err := store.LinkPaperConcept(ctx, up.ID, c.ID, ref.Score); err != nil {
			return false, 0, fmt.Errorf("link concept %q: %w", concept.Key(), err)
		}
	}

	citations := 0
	for _, ref := range record.ReferencedWorks {
		citedID, err := store.FindPaperID(ctx, ref)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, 0, fmt.Errorf("resolve reference %q: %w", ref, err)
		}
		if _, err := store.InsertCitation(ctx, &domain.Citation{PaperID: citedID, CitingPaperID: up.ID}); err != nil {
			return false, 0, fmt.Errorf("insert citation: %w", err)
		}
		citations++
	}

	return up.Inserted, citations, nil
}

// IngestAll runs jobs concurrently, at most Config.Concurrency at a time.
// Reports are returned in job order. A failing job does not stop the
// others; their errors are joined.
func (r *Runner) IngestAll(ctx context.Context, jobs []Job) ([]*Report, error) {
	reports := make([]*Report, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			report, err := r.Ingest(ctx, job.Adapter, job.Reader)
			reports[i] = report
			if err != nil {
				errs[i] = fmt.Errorf("ingest %s: %w", job.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

// classify maps a record failure to its outcome.
func classify(err error) domain.Outcome {
	if errors.Is(err, domain.ErrNoIdentity) {
		return domain.OutcomeSkippedNoIdentity
	}
	return domain.OutcomeSkippedError
}
