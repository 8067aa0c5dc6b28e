package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// Index is an in-memory lookup of OpenAlex works by DOI and OpenAlex id,
// built from a works export. It resolves placeholder entries during
// enrichment sweeps.
type Index struct {
	byDOI map[string]*Work
	byID  map[string]*Work
}

// NewIndex reads every work from reader. Malformed lines are counted and
// skipped.
func NewIndex(reader papersources.RecordReader) (*Index, int, error) {
	idx := &Index{
		byDOI: make(map[string]*Work),
		byID:  make(map[string]*Work),
	}

	skipped := 0
	for {
		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read openalex export: %w", err)
		}

		var work Work
		if err := json.Unmarshal(raw, &work); err != nil {
			skipped++
			continue
		}
		idx.add(&work)
	}
	return idx, skipped, nil
}

func (i *Index) add(work *Work) {
	if doi := domain.NormalizeDOI(work.DOI); doi != "" {
		i.byDOI[doi] = work
	}
	if id := normalizeOpenAlexID(work.ID); id != "" {
		i.byID[id] = work
	}
}

// Len returns the number of distinct works indexed by id or DOI.
func (i *Index) Len() int {
	seen := make(map[*Work]struct{}, len(i.byID))
	for _, w := range i.byID {
		seen[w] = struct{}{}
	}
	for _, w := range i.byDOI {
		seen[w] = struct{}{}
	}
	return len(seen)
}

// Resolve returns fill values for entry, matching by DOI first and then by
// source id. ok is false when the export has no matching work.
func (i *Index) Resolve(_ context.Context, entry domain.PlaceholderEntry) (map[string]any, bool, error) {
	if doi := domain.NormalizeDOI(entry.DOI); doi != "" {
		if w, ok := i.byDOI[doi]; ok {
			return FillValues(w), true, nil
		}
	}
	if id := normalizeOpenAlexID(entry.SourceID); id != "" {
		if w, ok := i.byID[id]; ok {
			return FillValues(w), true, nil
		}
	}
	return nil, false, nil
}
