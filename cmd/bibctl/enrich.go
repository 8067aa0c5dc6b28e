package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/worker"
)

func init() {
	rootCmd.AddCommand(enrichCmd)
}

var enrichCmd = &cobra.Command{
	Use:   "enrich <openalex-works.jsonl>",
	Short: "Fill placeholder citation counts and abstracts from an OpenAlex export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, s *app.Services, _ *config.Config) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer f.Close()

			reports, err := worker.EnrichFrom(ctx, f, s.Ingestion, worker.EnrichFields, s.Logger())
			for _, r := range reports {
				if humanOutput {
					fmt.Printf("%s: %d scanned, %d filled, %d unmatched, %d failed\n", r.Field, r.Scanned, r.Filled, r.Unmatched, r.Failed)
				}
			}
			if !humanOutput {
				if outErr := outputJSON(reports); outErr != nil {
					return outErr
				}
			}
			return err
		})
	},
}
