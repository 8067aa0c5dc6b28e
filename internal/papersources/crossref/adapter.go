package crossref

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// jatsTagRegex strips the JATS markup CrossRef wraps abstracts in.
var jatsTagRegex = regexp.MustCompile(`<[^>]+>`)

// Compile-time interface verification.
var _ papersources.Adapter = (*Adapter)(nil)

// Adapter maps CrossRef works.
type Adapter struct{}

// New creates a CrossRef adapter.
func New() *Adapter {
	return &Adapter{}
}

// Source returns the CrossRef source type.
func (a *Adapter) Source() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Map decodes one CrossRef work.
func (a *Adapter) Map(raw []byte) (*domain.Record, error) {
	var work Work
	if err := json.Unmarshal(raw, &work); err != nil {
		return nil, fmt.Errorf("%w: crossref work: %v", papersources.ErrMalformedRecord, err)
	}
	return workToRecord(&work), nil
}

// workToRecord converts a CrossRef work to a canonical record. CrossRef has
// no identifier besides the DOI, so SourceID stays empty and the
// openalex_id column is left for OpenAlex to fill.
func workToRecord(work *Work) *domain.Record {
	record := &domain.Record{
		Source: domain.SourceTypeCrossRef,
		Paper: domain.Paper{
			DOI:             domain.NormalizeDOI(work.DOI),
			Source:          domain.SourceTypeCrossRef,
			Title:           joinNonEmpty(work.Title),
			Abstract:        cleanAbstract(work.Abstract),
			PublicationYear: publicationYear(work),
			PDFURL:          pdfURL(work),
			TotalCitations:  work.IsReferencedByCount,
		},
	}

	if len(work.ContainerTitle) > 0 {
		record.Journal = strings.TrimSpace(work.ContainerTitle[0])
	}
	if len(work.ISSN) > 0 {
		record.JournalISSN = strings.TrimSpace(work.ISSN[0])
	}

	for _, author := range work.Author {
		name := authorName(author)
		if name == "" {
			continue
		}
		ref := domain.AuthorRef{Name: name}
		if len(author.Affiliation) > 0 {
			ref.Affiliation = strings.TrimSpace(author.Affiliation[0].Name)
		}
		record.Authors = append(record.Authors, ref)
	}

	for _, subject := range work.Subject {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}
		record.Concepts = append(record.Concepts, domain.ConceptRef{Name: subject})
	}

	return record
}

// publicationYear prefers the print date, then online, then the generic
// published date.
func publicationYear(work *Work) int {
	for _, d := range []*Date{work.PublishedPrint, work.PublishedOnline, work.Published} {
		if y := d.Year(); y > 0 {
			return y
		}
	}
	return 0
}

func pdfURL(work *Work) string {
	for _, link := range work.Link {
		if link.ContentType == "application/pdf" && link.URL != "" {
			return link.URL
		}
	}
	return strings.TrimSpace(work.URL)
}

// authorName renders "given family", falling back to whichever part exists
// and then to the organisational name.
func authorName(a Author) string {
	given := strings.TrimSpace(a.Given)
	family := strings.TrimSpace(a.Family)
	switch {
	case given != "" && family != "":
		return domain.AuthorKey(given + " " + family)
	case family != "":
		return domain.AuthorKey(family)
	case given != "":
		return domain.AuthorKey(given)
	default:
		return domain.AuthorKey(a.Name)
	}
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func cleanAbstract(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(jatsTagRegex.ReplaceAllString(s, " ")), " ")
}
