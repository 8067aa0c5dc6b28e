package worker

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/ingestion"
	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/papersources"
	"github.com/helixir/bibliometrics-service/internal/papersources/openalex"
)

// OpenAlexEnricher fills placeholder citation counts and abstracts from an
// OpenAlex works export.
type OpenAlexEnricher struct {
	exportPath string
	runner     Enricher
	fields     []string
	logger     zerolog.Logger
}

// Enricher runs a fill-only sweep for one field.
type Enricher interface {
	Enrich(ctx context.Context, field string, lookup ingestion.Lookup) (*ingestion.EnrichReport, error)
}

// EnrichFields are the placeholder columns the enrichment job sweeps.
var EnrichFields = []string{"total_citations", "abstract"}

// NewOpenAlexEnricher creates an enricher reading exportPath on each run.
func NewOpenAlexEnricher(exportPath string, runner Enricher, logger zerolog.Logger) *OpenAlexEnricher {
	return &OpenAlexEnricher{
		exportPath: exportPath,
		runner:     runner,
		fields:     EnrichFields,
		logger:     logger.With().Str("component", "enricher").Logger(),
	}
}

// Run indexes the export and sweeps each field.
func (e *OpenAlexEnricher) Run(ctx context.Context) ([]*ingestion.EnrichReport, error) {
	f, err := os.Open(e.exportPath)
	if err != nil {
		return nil, fmt.Errorf("open openalex export: %w", err)
	}
	defer f.Close()

	return EnrichFrom(ctx, f, e.runner, e.fields, observability.LoggerFromContext(ctx, e.logger))
}

// EnrichFrom indexes an OpenAlex JSON-lines export read from in and runs a
// sweep per field.
func EnrichFrom(ctx context.Context, in io.Reader, runner Enricher, fields []string, logger zerolog.Logger) ([]*ingestion.EnrichReport, error) {
	index, skipped, err := openalex.NewIndex(papersources.NewJSONLReader(in))
	if err != nil {
		return nil, fmt.Errorf("index openalex export: %w", err)
	}
	logger.Info().Int("works", index.Len()).Int("skipped", skipped).Msg("openalex export indexed")

	reports := make([]*ingestion.EnrichReport, 0, len(fields))
	for _, field := range fields {
		report, err := runner.Enrich(ctx, field, index)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, fmt.Errorf("enrich %s: %w", field, err)
		}
	}
	return reports, nil
}
