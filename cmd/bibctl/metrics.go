package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
)

func init() {
	rootCmd.AddCommand(metricsCmd)
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Recompute every bibliometric indicator",
	Long: `Metrics reads a consistent snapshot of the store, recomputes author,
paper and journal indicators and the coauthor PageRank, and writes them
back in chunks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, func(ctx context.Context, s *app.Services, _ *config.Config) error {
			summary, err := s.Bibliometrics.RecomputeAll(ctx)
			if err != nil {
				return err
			}
			if humanOutput {
				fmt.Printf("authors:  %d updated, %d skipped, %d failed\n", summary.Authors.Updated, summary.Authors.Skipped, summary.Authors.Failed)
				fmt.Printf("papers:   %d updated, %d skipped, %d failed\n", summary.Papers.Updated, summary.Papers.Skipped, summary.Papers.Failed)
				fmt.Printf("journals: %d updated, %d skipped, %d failed\n", summary.Journals.Updated, summary.Journals.Skipped, summary.Journals.Failed)
				fmt.Printf("took %s\n", summary.Duration)
				return nil
			}
			return outputJSON(summary)
		})
	},
}
