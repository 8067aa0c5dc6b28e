package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

type mapLookup struct {
	abstracts map[string]string
	fail      map[string]bool
}

func (l mapLookup) Resolve(_ context.Context, entry domain.PlaceholderEntry) (map[string]any, bool, error) {
	if l.fail[entry.DOI] {
		return nil, false, errors.New("lookup exploded")
	}
	text, ok := l.abstracts[entry.DOI]
	if !ok {
		return nil, false, nil
	}
	return map[string]any{"abstract": text}, true, nil
}

func seedPapers(t *testing.T, store *fakeStore, dois ...string) {
	t.Helper()
	for _, doi := range dois {
		_, err := store.UpsertPaper(context.Background(), &domain.Paper{DOI: doi, Title: doi})
		require.NoError(t, err)
	}
}

func TestRunner_Enrich(t *testing.T) {
	store := newFakeStore()
	seedPapers(t, store, "10.1/a", "10.1/b", "10.1/c", "10.1/d", "10.1/e")
	store.failFill[4] = true
	runner, _ := newTestRunner(store)

	lookup := mapLookup{
		abstracts: map[string]string{"10.1/a": "alpha", "10.1/c": "gamma", "10.1/d": "delta"},
		fail:      map[string]bool{"10.1/e": true},
	}

	report, err := runner.Enrich(context.Background(), "abstract", lookup)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 2, report.Filled)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, 2, report.Failed)

	assert.Equal(t, "alpha", store.papers[1].Abstract)
	assert.Empty(t, store.papers[2].Abstract)
	assert.Equal(t, "gamma", store.papers[3].Abstract)
	assert.Empty(t, store.papers[4].Abstract)
}

func TestRunner_EnrichRejectsUnknownField(t *testing.T) {
	runner, _ := newTestRunner(newFakeStore())

	_, err := runner.Enrich(context.Background(), "h_index", mapLookup{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunner_EnrichEmpty(t *testing.T) {
	runner, _ := newTestRunner(newFakeStore())

	report, err := runner.Enrich(context.Background(), "abstract", mapLookup{})
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}
