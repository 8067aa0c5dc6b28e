//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/database"
	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// startPostgres runs a throwaway PostgreSQL container with the schema
// migrated and returns a connected pool.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("bibliometrics"),
		tcpostgres.WithUsername("biblio"),
		tcpostgres.WithPassword("biblio"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.DatabaseConfig{
		Host:              host,
		Port:              port.Int(),
		User:              "biblio",
		Password:          "biblio",
		Name:              "bibliometrics",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          4,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
	db, err := database.New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	migrator, err := database.NewMigrator(db, "../../migrations", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	return db
}

func TestPgStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires Docker")
	}

	db := startPostgres(t)
	ctx := context.Background()
	store := repository.NewPgStore(db)

	t.Run("fill-only merge keeps the first title", func(t *testing.T) {
		first, err := store.UpsertPaper(ctx, &domain.Paper{
			DOI:    "10.1000/merge",
			Title:  "Original Title",
			Source: domain.SourceTypeCrossRef,
		})
		require.NoError(t, err)
		assert.True(t, first.Inserted)

		second, err := store.UpsertPaper(ctx, &domain.Paper{
			DOI:            "10.1000/merge",
			Title:          "Other Title",
			Abstract:       "Filled later.",
			TotalCitations: 12,
			Source:         domain.SourceTypeOpenAlex,
		})
		require.NoError(t, err)
		assert.False(t, second.Inserted)
		assert.Equal(t, first.ID, second.ID)

		got, err := store.FindPaperByDOI(ctx, "10.1000/merge")
		require.NoError(t, err)
		assert.Equal(t, "Original Title", got.Title)
		assert.Equal(t, "Filled later.", got.Abstract)
		assert.Equal(t, 12, got.TotalCitations)
		assert.Equal(t, domain.SourceTypeCrossRef, got.Source)
	})

	t.Run("source id fallback and missing identity", func(t *testing.T) {
		res, err := store.UpsertPaper(ctx, &domain.Paper{SourceID: "W77", Title: "No DOI"})
		require.NoError(t, err)

		id, err := store.FindPaperID(ctx, "W77")
		require.NoError(t, err)
		assert.Equal(t, res.ID, id)

		_, err = store.UpsertPaper(ctx, &domain.Paper{Title: "Orphan"})
		assert.True(t, errors.Is(err, domain.ErrNoIdentity))
	})

	t.Run("links are idempotent", func(t *testing.T) {
		paper, err := store.UpsertPaper(ctx, &domain.Paper{DOI: "10.1000/links"})
		require.NoError(t, err)
		author, err := store.UpsertAuthor(ctx, &domain.Author{Name: "  Ada Lovelace "})
		require.NoError(t, err)
		again, err := store.UpsertAuthor(ctx, &domain.Author{Name: "Ada Lovelace"})
		require.NoError(t, err)
		assert.Equal(t, author.ID, again.ID)

		require.NoError(t, store.LinkPaperAuthor(ctx, paper.ID, author.ID, 1))
		require.NoError(t, store.LinkPaperAuthor(ctx, paper.ID, author.ID, 2))

		var n int
		require.NoError(t, db.QueryRow(ctx,
			"SELECT count(*) FROM paper_authors WHERE paper_id = $1", paper.ID).Scan(&n))
		assert.Equal(t, 1, n)

		var position int
		require.NoError(t, db.QueryRow(ctx,
			"SELECT author_position FROM paper_authors WHERE paper_id = $1", paper.ID).Scan(&position))
		assert.Equal(t, 1, position, "first link keeps its position")
	})

	t.Run("placeholder listing and fill", func(t *testing.T) {
		res, err := store.UpsertPaper(ctx, &domain.Paper{DOI: "10.1000/placeholder", Title: "Needs counts"})
		require.NoError(t, err)

		entries, err := store.ListEntriesMissingField(ctx, "total_citations", 100)
		require.NoError(t, err)
		var found bool
		for _, e := range entries {
			if e.ID == res.ID {
				found = true
				assert.Equal(t, "10.1000/placeholder", e.DOI)
			}
		}
		assert.True(t, found)

		require.NoError(t, store.FillPaperFields(ctx, res.ID, map[string]any{"total_citations": 7}))
		require.NoError(t, store.FillPaperFields(ctx, res.ID, map[string]any{"total_citations": 99}))

		got, err := store.FindPaperByDOI(ctx, "10.1000/placeholder")
		require.NoError(t, err)
		assert.Equal(t, 7, got.TotalCitations)
	})

	t.Run("transactor commits one record", func(t *testing.T) {
		tx := repository.NewPgTransactor(db)
		err := tx.InTx(ctx, func(s repository.Store) error {
			_, err := s.UpsertPaper(ctx, &domain.Paper{DOI: "10.1000/tx", Title: "In a transaction"})
			return err
		})
		require.NoError(t, err)

		_, err = store.FindPaperByDOI(ctx, "10.1000/tx")
		assert.NoError(t, err)
	})

	t.Run("corpus rows carry every feature", func(t *testing.T) {
		rows, err := repository.NewPgCorpusReader(db).LoadRankingRows(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		for _, r := range rows {
			assert.Len(t, r.Features, len(repository.FeatureNames))
		}
	})
}
