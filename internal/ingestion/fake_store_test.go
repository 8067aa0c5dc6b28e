package ingestion

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/repository"
)

// fakeStore is an in-memory Store honoring the fill-only rule for the
// fields the ingestion tests look at.
type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	papers    map[int64]*domain.Paper
	authors   map[string]int64
	journals  map[string]int64
	concepts  map[string]int64
	paperAuth map[[2]int64]int
	paperConc map[[2]int64]*float64
	citations []domain.Citation

	failPaperTitle string
	failFill       map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		papers:    make(map[int64]*domain.Paper),
		authors:   make(map[string]int64),
		journals:  make(map[string]int64),
		concepts:  make(map[string]int64),
		paperAuth: make(map[[2]int64]int),
		paperConc: make(map[[2]int64]*float64),
		failFill:  make(map[int64]bool),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) findPaper(doi, sourceID string) *domain.Paper {
	for _, p := range f.papers {
		if doi != "" && p.DOI == doi {
			return p
		}
	}
	if doi != "" {
		return nil
	}
	for _, p := range f.papers {
		if sourceID != "" && p.SourceID == sourceID {
			return p
		}
	}
	return nil
}

func (f *fakeStore) UpsertPaper(_ context.Context, paper *domain.Paper) (repository.Upserted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !paper.HasIdentity() {
		return repository.Upserted{}, domain.NewIdentityError("paper", paper.Title)
	}
	if f.failPaperTitle != "" && paper.Title == f.failPaperTitle {
		return repository.Upserted{}, domain.NewStorageError("upsert paper", "23505", errors.New("duplicate key"))
	}

	if existing := f.findPaper(paper.DOI, paper.SourceID); existing != nil {
		if existing.Title == "" {
			existing.Title = paper.Title
		}
		if existing.Abstract == "" {
			existing.Abstract = paper.Abstract
		}
		if existing.TotalCitations == 0 {
			existing.TotalCitations = paper.TotalCitations
		}
		if existing.SourceID == "" {
			existing.SourceID = paper.SourceID
		}
		if existing.JournalID == 0 {
			existing.JournalID = paper.JournalID
		}
		paper.ID = existing.ID
		return repository.Upserted{ID: existing.ID}, nil
	}

	stored := *paper
	stored.ID = f.id()
	f.papers[stored.ID] = &stored
	paper.ID = stored.ID
	return repository.Upserted{ID: stored.ID, Inserted: true}, nil
}

func (f *fakeStore) upsertNamed(m map[string]int64, key string) repository.Upserted {
	if id, ok := m[key]; ok {
		return repository.Upserted{ID: id}
	}
	id := f.id()
	m[key] = id
	return repository.Upserted{ID: id, Inserted: true}
}

func (f *fakeStore) UpsertAuthor(_ context.Context, author *domain.Author) (repository.Upserted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	up := f.upsertNamed(f.authors, domain.AuthorKey(author.Name))
	author.ID = up.ID
	return up, nil
}

func (f *fakeStore) UpsertJournal(_ context.Context, journal *domain.Journal) (repository.Upserted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	up := f.upsertNamed(f.journals, strings.TrimSpace(journal.Name))
	journal.ID = up.ID
	return up, nil
}

func (f *fakeStore) UpsertConcept(_ context.Context, concept *domain.Concept) (repository.Upserted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	up := f.upsertNamed(f.concepts, concept.Key())
	concept.ID = up.ID
	return up, nil
}

func (f *fakeStore) LinkPaperAuthor(_ context.Context, paperID, authorID int64, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{paperID, authorID}
	if _, ok := f.paperAuth[key]; !ok {
		f.paperAuth[key] = position
	}
	return nil
}

func (f *fakeStore) LinkPaperConcept(_ context.Context, paperID, conceptID int64, score *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{paperID, conceptID}
	if existing, ok := f.paperConc[key]; ok && existing != nil {
		return nil
	}
	f.paperConc[key] = score
	return nil
}

func (f *fakeStore) InsertCitation(_ context.Context, citation *domain.Citation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *citation
	c.ID = f.id()
	f.citations = append(f.citations, c)
	return c.ID, nil
}

func (f *fakeStore) FindPaperByDOI(_ context.Context, doi string) (*domain.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findPaper(domain.NormalizeDOI(doi), ""); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, domain.NewNotFoundError("paper", doi)
}

func (f *fakeStore) FindPaperID(_ context.Context, identifier string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.papers {
		if p.DOI == identifier || p.SourceID == identifier {
			return p.ID, nil
		}
	}
	return 0, domain.NewNotFoundError("paper", identifier)
}

func (f *fakeStore) ListEntriesMissingField(ctx context.Context, field string, limit int) ([]domain.PlaceholderEntry, error) {
	return f.ListEntriesMissingFieldAfter(ctx, field, 0, limit)
}

func (f *fakeStore) ListEntriesMissingFieldAfter(_ context.Context, field string, afterID int64, limit int) ([]domain.PlaceholderEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if field != "abstract" {
		return nil, domain.NewValidationError("field", "unsupported in fake")
	}
	var entries []domain.PlaceholderEntry
	for _, p := range f.papers {
		if p.ID > afterID && p.Abstract == "" {
			entries = append(entries, domain.PlaceholderEntry{ID: p.ID, SourceID: p.SourceID, DOI: p.DOI, Title: p.Title})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeStore) FillPaperFields(_ context.Context, paperID int64, values map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFill[paperID] {
		return domain.NewStorageError("fill paper", "", errors.New("connection reset"))
	}
	p, ok := f.papers[paperID]
	if !ok {
		return domain.NewNotFoundError("paper", "")
	}
	if v, ok := values["abstract"].(string); ok && p.Abstract == "" {
		p.Abstract = v
	}
	return nil
}

// fakeTransactor runs fn directly against the store.
type fakeTransactor struct {
	store *fakeStore
	calls int
	mu    sync.Mutex
}

func (t *fakeTransactor) InTx(_ context.Context, fn func(repository.Store) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	return fn(t.store)
}
