package repository

import (
	"context"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// Upserted is the outcome of a fill-only upsert.
type Upserted struct {
	ID int64
	// Inserted is true when the statement created the row, false when it
	// merged into an existing one.
	Inserted bool
}

// Store is the reconciliation store written to by every source adapter.
type Store interface {
	// UpsertPaper inserts or fill-only merges a paper keyed by DOI, else
	// source id. Returns *domain.IdentityError without writing when the
	// paper has neither.
	UpsertPaper(ctx context.Context, paper *domain.Paper) (Upserted, error)

	// UpsertAuthor inserts or merges an author keyed by trimmed display name.
	UpsertAuthor(ctx context.Context, author *domain.Author) (Upserted, error)

	// UpsertJournal inserts or merges a journal keyed by display name.
	UpsertJournal(ctx context.Context, journal *domain.Journal) (Upserted, error)

	// UpsertConcept inserts or merges a concept keyed by external id,
	// falling back to its name.
	UpsertConcept(ctx context.Context, concept *domain.Concept) (Upserted, error)

	// LinkPaperAuthor records authorship at a 1-based byline position.
	// Linking an existing pair is a no-op.
	LinkPaperAuthor(ctx context.Context, paperID, authorID int64, position int) error

	// LinkPaperConcept records a concept tag. Linking an existing pair only
	// fills a missing score.
	LinkPaperConcept(ctx context.Context, paperID, conceptID int64, score *float64) error

	// InsertCitation appends a citation edge. Edges are never deduplicated.
	InsertCitation(ctx context.Context, citation *domain.Citation) (int64, error)

	// FindPaperByDOI returns the paper with the given DOI or a
	// *domain.NotFoundError.
	FindPaperByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// FindPaperID resolves a DOI or source id to a paper id.
	FindPaperID(ctx context.Context, identifier string) (int64, error)

	// ListEntriesMissingField returns papers whose field is NULL or holds a
	// placeholder, ordered by id.
	ListEntriesMissingField(ctx context.Context, field string, limit int) ([]domain.PlaceholderEntry, error)

	// ListEntriesMissingFieldAfter pages ListEntriesMissingField by id.
	ListEntriesMissingFieldAfter(ctx context.Context, field string, afterID int64, limit int) ([]domain.PlaceholderEntry, error)

	// FillPaperFields fills placeholder columns of an existing paper.
	FillPaperFields(ctx context.Context, paperID int64, values map[string]any) error
}

// Transactor runs fn with a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
