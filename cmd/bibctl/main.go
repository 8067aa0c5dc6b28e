// Package main provides bibctl, the operator CLI for ingestion, metric
// recomputation, training and ad hoc ranking.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/database"
)

// Version is set at build time via ldflags.
var Version = "dev"

// humanOutput switches command output from JSON to plain text.
var humanOutput bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibctl",
	Short: "Operate the bibliometrics service",
	Long: `bibctl ingests source exports into the reconciliation store, recomputes
bibliometric indicators, trains the impact estimator and ranks the corpus
against a query. Configuration comes from config.yaml and BIBLIO_* variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// withServices loads configuration, connects to the database and runs fn
// with the wired engines.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *app.Services, cfg *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Logging).With().Str("component", "bibctl").Logger()
	if humanOutput {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	services, err := app.NewServices(ctx, cfg, db, nil, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	return fn(ctx, services, cfg)
}
