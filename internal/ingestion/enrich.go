package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// Lookup resolves a placeholder entry to fill values. ok is false when the
// lookup has nothing for the entry.
type Lookup interface {
	Resolve(ctx context.Context, entry domain.PlaceholderEntry) (values map[string]any, ok bool, err error)
}

// EnrichReport counts the results of an enrichment sweep.
type EnrichReport struct {
	Field     string
	Scanned   int
	Filled    int
	Unmatched int
	Failed    int
	Duration  time.Duration
}

// Enrich walks every paper whose field is unset, resolves it through
// lookup and fills the placeholder columns lookup returns. Filled values
// follow the fill-only rule, so columns holding data are never touched.
// Per-entry failures are counted and skipped.
func (r *Runner) Enrich(ctx context.Context, field string, lookup Lookup) (*EnrichReport, error) {
	report := &EnrichReport{Field: field}
	logger := r.logger.With().Str("field", field).Logger()
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	var afterID int64
	for {
		var page []domain.PlaceholderEntry
		err := r.tx.InTx(ctx, func(store repository.Store) error {
			var listErr error
			page, listErr = store.ListEntriesMissingFieldAfter(ctx, field, afterID, r.batchSize)
			return listErr
		})
		if err != nil {
			return report, fmt.Errorf("list entries missing %s: %w", field, err)
		}
		if len(page) == 0 {
			break
		}

		for _, entry := range page {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			afterID = entry.ID
			report.Scanned++

			values, ok, err := lookup.Resolve(ctx, entry)
			if err != nil {
				report.Failed++
				logger.Warn().Err(err).Int64("paper_id", entry.ID).Msg("lookup failed")
				continue
			}
			if !ok {
				report.Unmatched++
				continue
			}

			err = r.tx.InTx(ctx, func(store repository.Store) error {
				return store.FillPaperFields(ctx, entry.ID, values)
			})
			if err != nil {
				report.Failed++
				logger.Warn().Err(err).Int64("paper_id", entry.ID).Msg("fill failed")
				continue
			}
			report.Filled++
		}

		if len(page) < r.batchSize {
			break
		}
	}

	r.metrics.RecordFieldsFilled(field, report.Filled)
	logger.Info().
		Int("scanned", report.Scanned).
		Int("filled", report.Filled).
		Int("unmatched", report.Unmatched).
		Int("failed", report.Failed).
		Msg("enrichment finished")
	return report, nil
}
