package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
)

var rankLimit int

func init() {
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 0, "Maximum number of papers (default from config)")
	rootCmd.AddCommand(rankCmd)
}

var rankCmd = &cobra.Command{
	Use:   "rank <query>...",
	Short: "Rank the corpus against a free-text query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withServices(cmd, func(ctx context.Context, s *app.Services, cfg *config.Config) error {
			engine, err := s.NewRankingEngine(ctx)
			if err != nil {
				return err
			}

			limit := rankLimit
			if limit == 0 {
				limit = cfg.Ranking.DefaultLimit
			}
			res, err := engine.Rank(ctx, query, limit)
			if err != nil {
				return err
			}
			if humanOutput {
				return writeRankTable(os.Stdout, res)
			}
			return outputJSON(res)
		})
	},
}
