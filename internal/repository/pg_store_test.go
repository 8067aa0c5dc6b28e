package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

func newTestPaper() *domain.Paper {
	return &domain.Paper{
		DOI:             "10.1234/test.paper",
		SourceID:        "W100",
		Source:          domain.SourceTypeOpenAlex,
		Title:           "Attention Is All You Need",
		Abstract:        "We propose a new simple network architecture.",
		PublicationYear: 2017,
		TotalCitations:  90000,
	}
}

func TestNewPgStore(t *testing.T) {
	t.Run("creates store with nil db", func(t *testing.T) {
		store := NewPgStore(nil)
		assert.NotNil(t, store)
		assert.Nil(t, store.db)
	})

	t.Run("creates store with mock db", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		assert.NotNil(t, store.db)
	})
}

func TestPgStore_UpsertPaper(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts new paper keyed by doi", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		paper := newTestPaper()

		mock.ExpectQuery(`INSERT INTO papers AS t \(doi, openalex_id, title`).
			WithArgs(
				"10.1234/test.paper", "W100", paper.Title, paper.Abstract, 2017,
				nil, nil, 90000, nil, "openalex",
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(1), true))

		res, err := store.UpsertPaper(ctx, paper)
		require.NoError(t, err)
		assert.Equal(t, Upserted{ID: 1, Inserted: true}, res)
		assert.Equal(t, int64(1), paper.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("merges paper keyed by source id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		paper := &domain.Paper{SourceID: "2401.00001v1", Source: domain.SourceTypeArXiv, Title: "X"}

		mock.ExpectQuery(`ON CONFLICT \(openalex_id\) DO UPDATE SET doi = CASE WHEN t.doi IS NULL OR t.doi = '' THEN EXCLUDED.doi ELSE t.doi END`).
			WithArgs("2401.00001v1", nil, "X", nil, nil, nil, nil, nil, nil, "arxiv").
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(7), false))

		res, err := store.UpsertPaper(ctx, paper)
		require.NoError(t, err)
		assert.False(t, res.Inserted)
		assert.Equal(t, int64(7), res.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects paper without identity and does not write", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		_, err = store.UpsertPaper(ctx, &domain.Paper{Title: "Orphan", DOI: "  "})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNoIdentity)
		var idErr *domain.IdentityError
		require.True(t, errors.As(err, &idErr))
		assert.Equal(t, "Orphan", idErr.Label)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps database failure as storage error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		anyArgs := make([]any, 10)
		for i := range anyArgs {
			anyArgs[i] = pgxmock.AnyArg()
		}
		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(anyArgs...).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

		_, err = store.UpsertPaper(ctx, newTestPaper())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorage)
		var storageErr *domain.StorageError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, "23505", storageErr.Code)
		assert.Equal(t, "upsert paper", storageErr.Op)
	})

	t.Run("returns validation error for nil paper", func(t *testing.T) {
		store := NewPgStore(nil)
		_, err := store.UpsertPaper(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgStore_UpsertAuthorJournalConcept(t *testing.T) {
	ctx := context.Background()

	t.Run("author keyed by collapsed display name", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery(`INSERT INTO authors AS t \(name, affiliation\)`).
			WithArgs("Ada Lovelace", nil).
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(3), true))

		author := &domain.Author{Name: "  Ada   Lovelace "}
		res, err := store.UpsertAuthor(ctx, author)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.ID)
		assert.Equal(t, int64(3), author.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank author name has no identity", func(t *testing.T) {
		store := NewPgStore(nil)
		_, err := store.UpsertAuthor(ctx, &domain.Author{Name: " "})
		assert.ErrorIs(t, err, domain.ErrNoIdentity)
	})

	t.Run("journal keyed by name", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery(`INSERT INTO journals AS t \(journal_name, issn\).*ON CONFLICT \(journal_name\)`).
			WithArgs("Nature", "0028-0836").
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(9), false))

		res, err := store.UpsertJournal(ctx, &domain.Journal{Name: "Nature", ISSN: "0028-0836"})
		require.NoError(t, err)
		assert.Equal(t, Upserted{ID: 9}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concept falls back to name as key", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery(`INSERT INTO concepts AS t \(openalex_id, name\)`).
			WithArgs("cs.LG", "cs.LG").
			WillReturnRows(pgxmock.NewRows([]string{"id", "inserted"}).AddRow(int64(4), true))

		res, err := store.UpsertConcept(ctx, &domain.Concept{Name: "cs.LG"})
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgStore_Links(t *testing.T) {
	ctx := context.Background()

	t.Run("paper author link is idempotent", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		for range 2 {
			mock.ExpectExec(`INSERT INTO paper_authors .* ON CONFLICT \(paper_id, author_id\) DO NOTHING`).
				WithArgs(int64(1), int64(2), 1).
				WillReturnResult(pgxmock.NewResult("INSERT", 0))
		}

		require.NoError(t, store.LinkPaperAuthor(ctx, 1, 2, 1))
		require.NoError(t, store.LinkPaperAuthor(ctx, 1, 2, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paper concept link fills score", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		score := 0.42
		mock.ExpectExec(`score = CASE WHEN t.score IS NULL OR t.score = 0 THEN EXCLUDED.score ELSE t.score END`).
			WithArgs(int64(1), int64(5), 0.42).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO paper_concepts").
			WithArgs(int64(1), int64(5), nil).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.LinkPaperConcept(ctx, 1, 5, &score))
		require.NoError(t, store.LinkPaperConcept(ctx, 1, 5, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("link failure is a storage error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectExec("INSERT INTO paper_authors").
			WithArgs(int64(1), int64(99), 1).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		err = store.LinkPaperAuthor(ctx, 1, 99, 1)
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestPgStore_InsertCitation(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgStore(mock)
	year := 2021
	citation := &domain.Citation{PaperID: 1, CitingPaperID: 2, CitationYear: &year}

	mock.ExpectQuery("INSERT INTO citations").
		WithArgs(int64(1), int64(2), (*int64)(nil), &year, (*int)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := store.InsertCitation(ctx, citation)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, int64(11), citation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_FindPaperByDOI(t *testing.T) {
	ctx := context.Background()
	columns := []string{
		"id", "doi", "openalex_id", "source", "title", "abstract", "publication_year",
		"journal_id", "pdf_url", "total_citations", "influential_citations",
		"delta_citations", "citations_per_year", "rank_citations_per_year",
		"created_at", "updated_at",
	}

	t.Run("normalizes doi and folds nulls", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		doi := "10.1/abc"
		title := "Kept Title"
		year := 2019
		cpy := 12.5
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT id, doi, openalex_id").
			WithArgs("10.1/abc").
			WillReturnRows(pgxmock.NewRows(columns).AddRow(
				int64(5), &doi, (*string)(nil), (*string)(nil), &title, (*string)(nil), &year,
				(*int64)(nil), (*string)(nil), (*int)(nil), (*int)(nil),
				(*int)(nil), &cpy, (*int)(nil), now, now,
			))

		paper, err := store.FindPaperByDOI(ctx, "https://doi.org/10.1/ABC")
		require.NoError(t, err)
		assert.Equal(t, int64(5), paper.ID)
		assert.Equal(t, "Kept Title", paper.Title)
		assert.Equal(t, "", paper.Abstract)
		assert.Equal(t, 2019, paper.PublicationYear)
		require.NotNil(t, paper.CitationsPerYear)
		assert.InDelta(t, 12.5, *paper.CitationsPerYear, 1e-9)
		assert.Nil(t, paper.RankCitationsPerYear)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery("SELECT id, doi").WithArgs("10.1/missing").WillReturnError(pgx.ErrNoRows)

		_, err = store.FindPaperByDOI(ctx, "10.1/missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects empty doi", func(t *testing.T) {
		store := NewPgStore(nil)
		_, err := store.FindPaperByDOI(ctx, "doi:")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgStore_FindPaperID(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPgStore(mock)
	mock.ExpectQuery(`WHERE doi = \$1 OR openalex_id = \$1`).
		WithArgs("W42").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT id FROM papers").
		WithArgs("W43").
		WillReturnError(pgx.ErrNoRows)

	id, err := store.FindPaperID(ctx, " W42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = store.FindPaperID(ctx, "W43")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_ListEntriesMissingField(t *testing.T) {
	ctx := context.Background()

	t.Run("lists placeholder rows", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery(`WHERE \(total_citations IS NULL OR total_citations = 0\)`).
			WithArgs(int64(0), 100).
			WillReturnRows(pgxmock.NewRows([]string{"id", "openalex_id", "doi", "title", "publication_year"}).
				AddRow(int64(1), "W1", "", "One", 2020).
				AddRow(int64(2), "", "10.1/two", "Two", 0))

		entries, err := store.ListEntriesMissingField(ctx, "total_citations", 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, domain.PlaceholderEntry{ID: 1, SourceID: "W1", Title: "One", PublicationYear: 2020}, entries[0])
		assert.Equal(t, "10.1/two", entries[1].DOI)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clamps limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery("FROM papers").
			WithArgs(int64(0), maxListLimit).
			WillReturnRows(pgxmock.NewRows([]string{"id", "openalex_id", "doi", "title", "publication_year"}))

		entries, err := store.ListEntriesMissingField(ctx, "abstract", 50000)
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pages after an id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectQuery(`AND id > \$1`).
			WithArgs(int64(40), 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "openalex_id", "doi", "title", "publication_year"}).
				AddRow(int64(41), "W41", "", "", 0))

		entries, err := store.ListEntriesMissingFieldAfter(ctx, "abstract", 40, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(41), entries[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown field", func(t *testing.T) {
		store := NewPgStore(nil)
		_, err := store.ListEntriesMissingField(ctx, "h_index; DROP TABLE papers", 10)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgStore_FillPaperFields(t *testing.T) {
	ctx := context.Background()

	t.Run("fills placeholder columns", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectExec(`UPDATE papers AS t SET abstract = CASE`).
			WithArgs(int64(3), "text", 12, 4).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = store.FillPaperFields(ctx, 3, map[string]any{
			"abstract":              "text",
			"total_citations":       12,
			"influential_citations": 4,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to fill skips the write", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		require.NoError(t, store.FillPaperFields(ctx, 3, map[string]any{"total_citations": 0}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing paper is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		mock.ExpectExec("UPDATE papers").
			WithArgs(int64(99), "t").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = store.FillPaperFields(ctx, 99, map[string]any{"title": "t"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// mockTxRunner runs transactions against a pgxmock pool the way
// database.DB does: rollback only when fn fails, commit otherwise.
type mockTxRunner struct {
	pool pgxmock.PgxPoolIface
}

func (m *mockTxRunner) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return m.run(ctx, pgx.TxOptions{}, fn)
}

func (m *mockTxRunner) WithRepeatableReadTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (m *mockTxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func TestPgTransactor_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO paper_authors").
			WithArgs(int64(1), int64(2), 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		tx := NewPgTransactor(&mockTxRunner{pool: mock})
		err = tx.InTx(ctx, func(s Store) error {
			return s.LinkPaperAuthor(ctx, 1, 2, 1)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		tx := NewPgTransactor(&mockTxRunner{pool: mock})
		err = tx.InTx(ctx, func(Store) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
