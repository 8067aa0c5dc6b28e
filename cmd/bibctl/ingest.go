package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/ingestion"
)

var ingestSource string

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "Source of the export files (arxiv, openalex, crossref, semantic_scholar)")
	_ = ingestCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest --source <source> <file>...",
	Short: "Ingest source export files into the store",
	Long: `Ingest reads each file with the source's record reader (Atom for arXiv,
JSON lines otherwise) and merges every record into the store under the
fill-only rule. Bad records are counted and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := parseSource(ingestSource)
		if err != nil {
			return err
		}
		return withServices(cmd, func(ctx context.Context, s *app.Services, _ *config.Config) error {
			return runIngest(ctx, s, source, args)
		})
	},
}

// IngestResult is the JSON output of the ingest command.
type IngestResult struct {
	File              string `json:"file"`
	Source            string `json:"source"`
	Inserted          int    `json:"inserted"`
	Updated           int    `json:"updated"`
	SkippedNoIdentity int    `json:"skipped_no_identity"`
	SkippedError      int    `json:"skipped_error"`
	Citations         int    `json:"citations"`
}

func runIngest(ctx context.Context, s *app.Services, source domain.SourceType, paths []string) error {
	adapter, err := s.Registry.Get(source)
	if err != nil {
		return err
	}

	jobs := make([]ingestion.Job, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		jobs = append(jobs, ingestion.Job{Name: path, Adapter: adapter, Reader: s.Registry.Reader(source, f)})
	}

	reports, runErr := s.Ingestion.IngestAll(ctx, jobs)

	results := make([]IngestResult, 0, len(reports))
	for i, r := range reports {
		if r == nil {
			continue
		}
		if humanOutput {
			fmt.Printf("%s  %s\n", paths[i], r)
			continue
		}
		results = append(results, IngestResult{
			File:              paths[i],
			Source:            string(r.Source),
			Inserted:          r.Inserted,
			Updated:           r.Updated,
			SkippedNoIdentity: r.SkippedNoIdentity,
			SkippedError:      r.SkippedError,
			Citations:         r.Citations,
		})
	}
	if !humanOutput {
		if err := outputJSON(results); err != nil {
			return err
		}
	}
	return runErr
}

func parseSource(s string) (domain.SourceType, error) {
	for _, st := range domain.AllSourceTypes() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", domain.NewValidationError("source", fmt.Sprintf("unknown source %q", s))
}
