// Package main provides a CLI tool for database migrations.
//
// Usage:
//
//	migrate [-path dir] up
//	migrate [-path dir] down
//	migrate [-path dir] steps N
//	migrate [-path dir] status
//	migrate [-path dir] force V
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/database"
	"github.com/helixir/bibliometrics-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// action is one parsed migrate command.
type action struct {
	name string
	n    int
}

func parseAction(args []string) (action, error) {
	if len(args) == 0 {
		return action{}, fmt.Errorf("no action specified (up, down, steps N, status, force V)")
	}
	a := action{name: args[0]}
	switch a.name {
	case "up", "down", "status":
		if len(args) != 1 {
			return action{}, fmt.Errorf("%s takes no arguments", a.name)
		}
	case "steps", "force":
		if len(args) != 2 {
			return action{}, fmt.Errorf("%s takes exactly one integer argument", a.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return action{}, fmt.Errorf("%s: %q is not an integer", a.name, args[1])
		}
		if a.name == "steps" && n == 0 {
			return action{}, fmt.Errorf("steps must be non-zero (positive=up, negative=down)")
		}
		if a.name == "force" && n < 0 {
			return action{}, fmt.Errorf("force version must not be negative")
		}
		a.n = n
	default:
		return action{}, fmt.Errorf("unknown action %q", a.name)
	}
	return a, nil
}

func run() error {
	migrationsPath := flag.String("path", "", "Override the migrations directory path")
	flag.Parse()

	act, err := parseAction(flag.Args())
	if err != nil {
		flag.Usage()
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if *migrationsPath != "" {
		migrationDir = *migrationsPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch act.name {
	case "up":
		logger.Info().Msg("running all pending migrations")
		err = migrator.Up()
	case "down":
		logger.Warn().Msg("rolling back all migrations")
		err = migrator.Down()
	case "steps":
		logger.Info().Int("steps", act.n).Msg("running migration steps")
		err = migrator.Steps(act.n)
	case "force":
		logger.Warn().Int("version", act.n).Msg("forcing migration version")
		err = migrator.Force(act.n)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", act.name, err)
	}

	printStatus(migrator, logger)
	return nil
}

// printStatus logs the current migration version.
func printStatus(migrator *database.Migrator, logger zerolog.Logger) {
	st, err := migrator.Status()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	if st.Fresh {
		logger.Info().Msg("no migrations applied")
		return
	}
	logger.Info().
		Uint("version", st.Version).
		Bool("dirty", st.Dirty).
		Msg("current migration version")
}
