package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
)

func init() {
	rootCmd.AddCommand(trainCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the impact estimator and store the artifact",
	Long: `Train labels the corpus by influential citation percentile, drops
leaking features, fits the scaler and classifier, and saves them as one
artifact. Running servers pick it up on POST /api/v1/ranking/reload.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withServices(cmd, func(ctx context.Context, s *app.Services, _ *config.Config) error {
			artifact, err := s.Trainer.Train(ctx)
			if err != nil {
				return err
			}

			kept := make([]string, 0, len(artifact.Kept))
			for _, idx := range artifact.Kept {
				kept = append(kept, artifact.Features[idx])
			}
			if humanOutput {
				fmt.Printf("run %s trained at %s\n", artifact.RunID, artifact.TrainedAt.Format(time.RFC3339))
				fmt.Printf("features: %v\n", kept)
				fmt.Printf("fingerprint: %s\n", artifact.Fingerprint)
				return nil
			}
			return outputJSON(map[string]any{
				"run_id":      artifact.RunID,
				"trained_at":  artifact.TrainedAt,
				"features":    kept,
				"fingerprint": artifact.Fingerprint,
			})
		})
	},
}
