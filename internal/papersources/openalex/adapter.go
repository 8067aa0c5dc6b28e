package openalex

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
const openAlexIDPrefix = "https://openalex.org/"

// maxAbstractWords guards against inverted indexes with absurd position counts.
const maxAbstractWords = 100_000

// Compile-time interface verification.
var _ papersources.Adapter = (*Adapter)(nil)

// Adapter maps OpenAlex works.
type Adapter struct{}

// New creates an OpenAlex adapter.
func New() *Adapter {
	return &Adapter{}
}

// Source returns the OpenAlex source type.
func (a *Adapter) Source() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Map decodes one OpenAlex work.
func (a *Adapter) Map(raw []byte) (*domain.Record, error) {
	var work Work
	if err := json.Unmarshal(raw, &work); err != nil {
		return nil, fmt.Errorf("%w: openalex work: %v", papersources.ErrMalformedRecord, err)
	}
	return workToRecord(&work), nil
}

// workToRecord converts an OpenAlex Work to a canonical record.
func workToRecord(work *Work) *domain.Record {
	doi := domain.NormalizeDOI(work.DOI)
	if doi == "" {
		doi = domain.NormalizeDOI(work.IDs.DOI)
	}

	openAlexID := normalizeOpenAlexID(work.ID)
	if openAlexID == "" {
		openAlexID = normalizeOpenAlexID(work.IDs.OpenAlex)
	}

	// display_name is usually cleaner than title
	title := work.DisplayName
	if title == "" {
		title = work.Title
	}

	var pdfURL string
	if work.OpenAccess != nil && work.OpenAccess.OAURL != "" {
		pdfURL = work.OpenAccess.OAURL
	} else if work.PrimaryLocation != nil {
		pdfURL = work.PrimaryLocation.PDFURL
	}

	record := &domain.Record{
		Source: domain.SourceTypeOpenAlex,
		Paper: domain.Paper{
			DOI:                  doi,
			SourceID:             openAlexID,
			Source:               domain.SourceTypeOpenAlex,
			Title:                strings.TrimSpace(title),
			Abstract:             reconstructAbstract(work.AbstractInvertedIndex),
			PublicationYear:      work.PublicationYear,
			PDFURL:               pdfURL,
			TotalCitations:       work.CitedByCount,
			InfluentialCitations: len(work.ReferencedWorks),
		},
	}

	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		record.Journal = strings.TrimSpace(work.PrimaryLocation.Source.DisplayName)
		record.JournalISSN = work.PrimaryLocation.Source.ISSNL
	}

	for _, authorship := range work.Authorships {
		name := strings.TrimSpace(authorship.Author.DisplayName)
		if name == "" {
			continue
		}
		ref := domain.AuthorRef{Name: name}
		if len(authorship.Institutions) > 0 {
			ref.Affiliation = authorship.Institutions[0].DisplayName
		}
		record.Authors = append(record.Authors, ref)
	}

	for _, c := range work.Concepts {
		if c.DisplayName == "" && c.ID == "" {
			continue
		}
		record.Concepts = append(record.Concepts, domain.ConceptRef{
			ExternalID: normalizeOpenAlexID(c.ID),
			Name:       c.DisplayName,
			Score:      c.Score,
		})
	}

	for _, ref := range work.ReferencedWorks {
		if id := normalizeOpenAlexID(ref); id != "" {
			record.ReferencedWorks = append(record.ReferencedWorks, id)
		}
	}

	return record
}

// FillValues returns the placeholder-fillable paper columns OpenAlex
// supplies for an enrichment sweep.
func FillValues(work *Work) map[string]any {
	return map[string]any{
		"total_citations":       work.CitedByCount,
		"influential_citations": len(work.ReferencedWorks),
		"abstract":              reconstructAbstract(work.AbstractInvertedIndex),
	}
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, openAlexIDPrefix)
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted index,
// which maps each word to the positions it occupies.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return pairs[i].word < pairs[j].word
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}
	return builder.String()
}
