package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/merge"
)

// Compile-time interface verification.
var (
	_ Store      = (*PgStore)(nil)
	_ Transactor = (*PgTransactor)(nil)
)

// PgStore is a PostgreSQL implementation of Store.
type PgStore struct {
	db DBTX
}

// NewPgStore creates a new PostgreSQL reconciliation store.
func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

// PgTransactor binds a PgStore to a transaction per unit of work.
type PgTransactor struct {
	runner TxRunner
}

// NewPgTransactor creates a transactor over runner.
func NewPgTransactor(runner TxRunner) *PgTransactor {
	return &PgTransactor{runner: runner}
}

// InTx runs fn inside one transaction.
func (t *PgTransactor) InTx(ctx context.Context, fn func(Store) error) error {
	return t.runner.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(NewPgStore(tx))
	})
}

// UpsertPaper inserts or fill-only merges a paper.
func (r *PgStore) UpsertPaper(ctx context.Context, paper *domain.Paper) (Upserted, error) {
	if paper == nil {
		return Upserted{}, domain.NewValidationError("paper", "paper cannot be nil")
	}

	key, err := merge.PaperKey(paper.DOI, paper.SourceID)
	if err != nil {
		return Upserted{}, domain.NewIdentityError("paper", paper.Title)
	}

	res, err := r.upsert(ctx, "upsert paper", merge.PaperSchema, key, map[string]any{
		"doi":                   paper.DOI,
		"openalex_id":           paper.SourceID,
		"title":                 paper.Title,
		"abstract":              paper.Abstract,
		"publication_year":      paper.PublicationYear,
		"journal_id":            paper.JournalID,
		"pdf_url":               paper.PDFURL,
		"total_citations":       paper.TotalCitations,
		"influential_citations": paper.InfluentialCitations,
		"source":                string(paper.Source),
	})
	if err != nil {
		return Upserted{}, err
	}

	paper.ID = res.ID
	return res, nil
}

// UpsertAuthor inserts or merges an author by display name.
func (r *PgStore) UpsertAuthor(ctx context.Context, author *domain.Author) (Upserted, error) {
	if author == nil {
		return Upserted{}, domain.NewValidationError("author", "author cannot be nil")
	}

	key, err := merge.NameKey("author", "name", domain.AuthorKey(author.Name))
	if err != nil {
		return Upserted{}, err
	}

	res, err := r.upsert(ctx, "upsert author", merge.AuthorSchema, key, map[string]any{
		"affiliation": author.Affiliation,
	})
	if err != nil {
		return Upserted{}, err
	}

	author.ID = res.ID
	return res, nil
}

// UpsertJournal inserts or merges a journal by display name.
func (r *PgStore) UpsertJournal(ctx context.Context, journal *domain.Journal) (Upserted, error) {
	if journal == nil {
		return Upserted{}, domain.NewValidationError("journal", "journal cannot be nil")
	}

	key, err := merge.NameKey("journal", "journal_name", journal.Name)
	if err != nil {
		return Upserted{}, err
	}

	res, err := r.upsert(ctx, "upsert journal", merge.JournalSchema, key, map[string]any{
		"issn": journal.ISSN,
	})
	if err != nil {
		return Upserted{}, err
	}

	journal.ID = res.ID
	return res, nil
}

// UpsertConcept inserts or merges a concept by external id or name.
func (r *PgStore) UpsertConcept(ctx context.Context, concept *domain.Concept) (Upserted, error) {
	if concept == nil {
		return Upserted{}, domain.NewValidationError("concept", "concept cannot be nil")
	}

	key, err := merge.NameKey("concept", "openalex_id", concept.Key())
	if err != nil {
		return Upserted{}, err
	}

	res, err := r.upsert(ctx, "upsert concept", merge.ConceptSchema, key, map[string]any{
		"name": concept.Name,
	})
	if err != nil {
		return Upserted{}, err
	}

	concept.ID = res.ID
	return res, nil
}

func (r *PgStore) upsert(ctx context.Context, op string, schema merge.Schema, key merge.Key, values map[string]any) (Upserted, error) {
	stmt, err := merge.BuildUpsert(schema, key, values)
	if err != nil {
		return Upserted{}, fmt.Errorf("failed to build %s: %w", op, err)
	}

	var res Upserted
	if err := r.db.QueryRow(ctx, stmt.SQL, stmt.Args...).Scan(&res.ID, &res.Inserted); err != nil {
		return Upserted{}, storageError(op, err)
	}
	return res, nil
}

// LinkPaperAuthor records that author wrote paper at byline position.
// The position of an existing pair is never changed.
func (r *PgStore) LinkPaperAuthor(ctx context.Context, paperID, authorID int64, position int) error {
	query := `
		INSERT INTO paper_authors (paper_id, author_id, author_position)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, author_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, paperID, authorID, position); err != nil {
		return storageError("link paper author", err)
	}
	return nil
}

// LinkPaperConcept tags paper with concept, filling a missing score.
func (r *PgStore) LinkPaperConcept(ctx context.Context, paperID, conceptID int64, score *float64) error {
	query := `
		INSERT INTO paper_concepts AS t (paper_id, concept_id, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, concept_id) DO UPDATE SET
			score = CASE WHEN t.score IS NULL OR t.score = 0 THEN EXCLUDED.score ELSE t.score END`

	var bound any
	if score != nil && *score != 0 {
		bound = *score
	}

	if _, err := r.db.Exec(ctx, query, paperID, conceptID, bound); err != nil {
		return storageError("link paper concept", err)
	}
	return nil
}

// InsertCitation appends a citation edge and returns its id.
func (r *PgStore) InsertCitation(ctx context.Context, citation *domain.Citation) (int64, error) {
	if citation == nil {
		return 0, domain.NewValidationError("citation", "citation cannot be nil")
	}

	query := `
		INSERT INTO citations (paper_id, citing_paper_id, author_id, citation_year, citation_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		citation.PaperID,
		citation.CitingPaperID,
		citation.AuthorID,
		citation.CitationYear,
		citation.CitationCount,
	).Scan(&citation.ID)
	if err != nil {
		return 0, storageError("insert citation", err)
	}
	return citation.ID, nil
}

// FindPaperByDOI looks a paper up by its normalized DOI.
func (r *PgStore) FindPaperByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := `
		SELECT id, doi, openalex_id, source, title, abstract, publication_year,
			journal_id, pdf_url, total_citations, influential_citations,
			delta_citations, citations_per_year, rank_citations_per_year,
			created_at, updated_at
		FROM papers
		WHERE doi = $1`

	var dest paperScanDest
	if err := r.db.QueryRow(ctx, query, doi).Scan(dest.destinations()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, storageError("find paper by doi", err)
	}
	return dest.finalize(), nil
}

// FindPaperID resolves a DOI or source id to the paper's id.
func (r *PgStore) FindPaperID(ctx context.Context, identifier string) (int64, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return 0, domain.NewValidationError("identifier", "identifier is required")
	}

	query := `
		SELECT id FROM papers
		WHERE doi = $1 OR openalex_id = $1
		ORDER BY id
		LIMIT 1`

	var id int64
	if err := r.db.QueryRow(ctx, query, identifier).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFoundError("paper", identifier)
		}
		return 0, storageError("find paper id", err)
	}
	return id, nil
}

// ListEntriesMissingField lists papers whose field is still unset.
func (r *PgStore) ListEntriesMissingField(ctx context.Context, field string, limit int) ([]domain.PlaceholderEntry, error) {
	return r.ListEntriesMissingFieldAfter(ctx, field, 0, limit)
}

// ListEntriesMissingFieldAfter is the keyset-paginated form of
// ListEntriesMissingField: only rows with id > afterID are returned.
func (r *PgStore) ListEntriesMissingFieldAfter(ctx context.Context, field string, afterID int64, limit int) ([]domain.PlaceholderEntry, error) {
	predicate, err := merge.PaperSchema.Predicate(field)
	if err != nil {
		return nil, domain.NewValidationError("field", err.Error())
	}

	query := fmt.Sprintf(`
		SELECT id, COALESCE(openalex_id, ''), COALESCE(doi, ''), COALESCE(title, ''),
			COALESCE(publication_year, 0)
		FROM papers
		WHERE %s AND id > $1
		ORDER BY id
		LIMIT $2`, predicate)

	rows, err := r.db.Query(ctx, query, afterID, clampLimit(limit))
	if err != nil {
		return nil, storageError("list entries missing "+field, err)
	}
	defer rows.Close()

	var entries []domain.PlaceholderEntry
	for rows.Next() {
		var e domain.PlaceholderEntry
		if err := rows.Scan(&e.ID, &e.SourceID, &e.DOI, &e.Title, &e.PublicationYear); err != nil {
			return nil, storageError("scan placeholder entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate placeholder entries", err)
	}
	return entries, nil
}

// FillPaperFields fills placeholder columns of paper paperID.
func (r *PgStore) FillPaperFields(ctx context.Context, paperID int64, values map[string]any) error {
	stmt, ok, err := merge.BuildFill(merge.PaperSchema, paperID, values)
	if err != nil {
		return domain.NewValidationError("values", err.Error())
	}
	if !ok {
		return nil
	}

	tag, err := r.db.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return storageError("fill paper fields", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", fmt.Sprintf("%d", paperID))
	}
	return nil
}

// paperScanDest holds the destination pointers for scanning a paper row.
type paperScanDest struct {
	paper         domain.Paper
	doi           *string
	sourceID      *string
	source        *string
	title         *string
	abstract      *string
	year          *int
	journalID     *int64
	pdfURL        *string
	total         *int
	influential   *int
	deltaCitation *int
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []any {
	return []any{
		&d.paper.ID, &d.doi, &d.sourceID, &d.source, &d.title, &d.abstract, &d.year,
		&d.journalID, &d.pdfURL, &d.total, &d.influential,
		&d.deltaCitation, &d.paper.CitationsPerYear, &d.paper.RankCitationsPerYear,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize folds nullable columns into the zero-means-unknown paper.
func (d *paperScanDest) finalize() *domain.Paper {
	p := d.paper
	p.DOI = deref(d.doi)
	p.SourceID = deref(d.sourceID)
	p.Source = domain.SourceType(deref(d.source))
	p.Title = deref(d.title)
	p.Abstract = deref(d.abstract)
	p.PublicationYear = deref(d.year)
	p.JournalID = deref(d.journalID)
	p.PDFURL = deref(d.pdfURL)
	p.TotalCitations = deref(d.total)
	p.InfluentialCitations = deref(d.influential)
	p.DeltaCitations = deref(d.deltaCitation)
	return &p
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
