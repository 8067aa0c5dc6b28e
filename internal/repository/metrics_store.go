package repository

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// PaperStat is the slice of a paper row the metrics engine reads.
type PaperStat struct {
	ID              int64
	PublicationYear int
	JournalID       int64
	TotalCitations  int
	// LastTotalCitations is the total recorded by the previous metrics
	// run, nil before the first run.
	LastTotalCitations *int
}

// AuthorStat carries the previously stored author values deltas are
// computed against.
type AuthorStat struct {
	ID              int64
	PrevHIndex      *int
	PrevTotalPapers *int
}

// JournalStat carries the previously stored journal values deltas are
// computed against.
type JournalStat struct {
	ID                int64
	PrevMeanCitations *float64
	PrevHIndex        *int
	PrevTotalPapers   *int
}

// Authorship is one paper_authors pair.
type Authorship struct {
	PaperID  int64
	AuthorID int64
}

// Snapshot is a point-in-time read of everything the metrics pass needs.
type Snapshot struct {
	Papers      []PaperStat
	Authors     []AuthorStat
	Journals    []JournalStat
	Authorships []Authorship
}

// PaperMetricsUpdate is the derived state written back to one paper.
type PaperMetricsUpdate struct {
	PaperID          int64
	CitationsPerYear float64
	Rank             int
	DeltaCitations   int
	TotalCitations   int
}

// AuthorMetricsUpdate is the derived state written back to one author.
type AuthorMetricsUpdate struct {
	AuthorID int64
	Metrics  domain.AuthorMetrics
}

// JournalMetricsUpdate is the derived state written back to one journal.
type JournalMetricsUpdate struct {
	JournalID int64
	Metrics   domain.JournalMetrics
}

// MetricsStore reads the corpus snapshot and writes derived metrics.
// Each Write call commits its argument in a single transaction.
type MetricsStore interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	WritePaperMetrics(ctx context.Context, updates []PaperMetricsUpdate) error
	WriteAuthorMetrics(ctx context.Context, updates []AuthorMetricsUpdate) error
	WriteJournalMetrics(ctx context.Context, updates []JournalMetricsUpdate) error
	WriteCoauthorPageRank(ctx context.Context, scores map[int64]float64) error
}

// Compile-time interface verification.
var _ MetricsStore = (*PgMetricsStore)(nil)

// PgMetricsStore is a PostgreSQL implementation of MetricsStore.
type PgMetricsStore struct {
	runner TxRunner
}

// NewPgMetricsStore creates a new PostgreSQL metrics store.
func NewPgMetricsStore(runner TxRunner) *PgMetricsStore {
	return &PgMetricsStore{runner: runner}
}

// LoadSnapshot reads papers, authors, journals and authorships inside one
// repeatable-read transaction so every read sees the same state.
func (r *PgMetricsStore) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := r.runner.WithRepeatableReadTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		if snap.Papers, err = collect(ctx, tx, "load paper stats", `
			SELECT id, COALESCE(publication_year, 0), COALESCE(journal_id, 0),
				COALESCE(total_citations, 0), last_total_citations
			FROM papers ORDER BY id`,
			func(row pgx.CollectableRow) (PaperStat, error) {
				var s PaperStat
				err := row.Scan(&s.ID, &s.PublicationYear, &s.JournalID, &s.TotalCitations, &s.LastTotalCitations)
				return s, err
			}); err != nil {
			return err
		}

		if snap.Authors, err = collect(ctx, tx, "load author stats", `
			SELECT id, h_index, total_papers FROM authors ORDER BY id`,
			func(row pgx.CollectableRow) (AuthorStat, error) {
				var s AuthorStat
				err := row.Scan(&s.ID, &s.PrevHIndex, &s.PrevTotalPapers)
				return s, err
			}); err != nil {
			return err
		}

		if snap.Journals, err = collect(ctx, tx, "load journal stats", `
			SELECT id, mean_citations_per_paper, journal_h_index, total_papers_published
			FROM journals ORDER BY id`,
			func(row pgx.CollectableRow) (JournalStat, error) {
				var s JournalStat
				err := row.Scan(&s.ID, &s.PrevMeanCitations, &s.PrevHIndex, &s.PrevTotalPapers)
				return s, err
			}); err != nil {
			return err
		}

		snap.Authorships, err = collect(ctx, tx, "load authorships", `
			SELECT paper_id, author_id FROM paper_authors ORDER BY paper_id, author_id`,
			func(row pgx.CollectableRow) (Authorship, error) {
				var a Authorship
				err := row.Scan(&a.PaperID, &a.AuthorID)
				return a, err
			})
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func collect[T any](ctx context.Context, db DBTX, op, query string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, storageError(op, err)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, storageError(op, err)
	}
	return out, nil
}

// WritePaperMetrics stores citations-per-year, rank and delta, and records
// the current total as the baseline for the next delta.
func (r *PgMetricsStore) WritePaperMetrics(ctx context.Context, updates []PaperMetricsUpdate) error {
	query := `
		UPDATE papers SET
			citations_per_year = $2,
			rank_citations_per_year = $3,
			delta_citations = $4,
			last_total_citations = $5
		WHERE id = $1`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query, u.PaperID, u.CitationsPerYear, u.Rank, u.DeltaCitations, u.TotalCitations)
	}
	return r.execBatch(ctx, "write paper metrics", batch)
}

// WriteAuthorMetrics stores per-author metrics. PageRank is written
// separately by WriteCoauthorPageRank.
func (r *PgMetricsStore) WriteAuthorMetrics(ctx context.Context, updates []AuthorMetricsUpdate) error {
	query := `
		UPDATE authors SET
			first_publication_year = $2,
			author_age = $3,
			h_index = $4,
			delta_h_index = $5,
			total_papers = $6,
			delta_total_papers = $7,
			recent_coauthors = $8,
			total_citations = $9,
			citations_per_paper = $10,
			max_citations = $11,
			total_journals = $12
		WHERE id = $1`

	batch := &pgx.Batch{}
	for _, u := range updates {
		m := u.Metrics
		batch.Queue(query,
			u.AuthorID,
			m.FirstPublicationYear,
			m.AuthorAge,
			m.HIndex,
			m.DeltaHIndex,
			m.TotalPapers,
			m.DeltaTotalPapers,
			m.RecentCoauthors,
			m.TotalCitations,
			m.CitationsPerPaper,
			m.MaxCitations,
			m.TotalJournals,
		)
	}
	return r.execBatch(ctx, "write author metrics", batch)
}

// WriteJournalMetrics stores per-journal metrics.
func (r *PgMetricsStore) WriteJournalMetrics(ctx context.Context, updates []JournalMetricsUpdate) error {
	query := `
		UPDATE journals SET
			mean_citations_per_paper = $2,
			delta_mean_citations_per_paper = $3,
			journal_h_index = $4,
			delta_journal_h_index = $5,
			max_citations_paper = $6,
			total_papers_published = $7,
			delta_total_papers_published = $8
		WHERE id = $1`

	batch := &pgx.Batch{}
	for _, u := range updates {
		m := u.Metrics
		batch.Queue(query,
			u.JournalID,
			m.MeanCitationsPerPaper,
			m.DeltaMeanCitationsPerPaper,
			m.HIndex,
			m.DeltaHIndex,
			m.MaxCitationsPaper,
			m.TotalPapersPublished,
			m.DeltaTotalPapersPublished,
		)
	}
	return r.execBatch(ctx, "write journal metrics", batch)
}

// WriteCoauthorPageRank stores every score in one transaction, so a failed
// write leaves all previous scores in place.
func (r *PgMetricsStore) WriteCoauthorPageRank(ctx context.Context, scores map[int64]float64) error {
	ids := make([]int64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`UPDATE authors SET coauthor_pagerank = $2 WHERE id = $1`, id, scores[id])
	}
	return r.execBatch(ctx, "write coauthor pagerank", batch)
}

func (r *PgMetricsStore) execBatch(ctx context.Context, op string, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return r.runner.WithTransaction(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return storageError(op, err)
			}
		}
		if err := br.Close(); err != nil {
			return storageError(op, err)
		}
		return nil
	})
}
