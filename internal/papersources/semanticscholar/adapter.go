package semanticscholar

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// Compile-time interface verification.
var _ papersources.Adapter = (*Adapter)(nil)

// Adapter maps Semantic Scholar papers.
type Adapter struct{}

// New creates a Semantic Scholar adapter.
func New() *Adapter {
	return &Adapter{}
}

// Source returns the Semantic Scholar source type.
func (a *Adapter) Source() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Map decodes one paper. A paper without a DOI yields an IdentityError.
func (a *Adapter) Map(raw []byte) (*domain.Record, error) {
	var paper Paper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, fmt.Errorf("%w: semantic scholar paper: %v", papersources.ErrMalformedRecord, err)
	}

	var doi string
	if paper.ExternalIDs != nil {
		doi = domain.NormalizeDOI(paper.ExternalIDs.DOI)
	}
	if doi == "" {
		return nil, domain.NewIdentityError("paper", strings.TrimSpace(paper.Title))
	}
	return paperToRecord(&paper, doi), nil
}

func paperToRecord(paper *Paper, doi string) *domain.Record {
	pdfURL := paper.URL
	if paper.OpenAccessPDF != nil && paper.OpenAccessPDF.URL != "" {
		pdfURL = paper.OpenAccessPDF.URL
	}

	record := &domain.Record{
		Source: domain.SourceTypeSemanticScholar,
		Paper: domain.Paper{
			DOI:                  doi,
			SourceID:             strings.TrimSpace(paper.PaperID),
			Source:               domain.SourceTypeSemanticScholar,
			Title:                strings.TrimSpace(paper.Title),
			Abstract:             strings.TrimSpace(paper.Abstract),
			PublicationYear:      paper.Year,
			PDFURL:               pdfURL,
			TotalCitations:       paper.CitationCount,
			InfluentialCitations: paper.InfluentialCitationCount,
		},
	}

	if paper.Journal != nil {
		record.Journal = strings.TrimSpace(paper.Journal.Name)
	}

	for _, author := range paper.Authors {
		name := strings.TrimSpace(author.Name)
		if name == "" {
			continue
		}
		record.Authors = append(record.Authors, domain.AuthorRef{Name: name})
	}

	for _, field := range paper.FieldsOfStudy {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		record.Concepts = append(record.Concepts, domain.ConceptRef{Name: field})
	}

	return record
}
