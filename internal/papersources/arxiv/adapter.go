package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// arxivIDRegex extracts the arXiv ID from the full URL.
// Matches patterns like "http://arxiv.org/abs/2301.12345v1" or "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Compile-time interface verification.
var (
	_ papersources.Adapter        = (*Adapter)(nil)
	_ papersources.ReaderProvider = (*Adapter)(nil)
)

// Adapter maps arXiv Atom entries.
type Adapter struct{}

// New creates an arXiv adapter.
func New() *Adapter {
	return &Adapter{}
}

// Source returns the arXiv source type.
func (a *Adapter) Source() domain.SourceType {
	return domain.SourceTypeArXiv
}

// NewReader splits an Atom feed into entries.
func (a *Adapter) NewReader(r io.Reader) papersources.RecordReader {
	return NewFeedReader(r)
}

// Map decodes one <entry> element.
func (a *Adapter) Map(raw []byte) (*domain.Record, error) {
	var entry Entry
	if err := xml.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: arxiv entry: %v", papersources.ErrMalformedRecord, err)
	}
	return entryToRecord(&entry), nil
}

// entryToRecord converts an arXiv Atom entry to a canonical record.
// The version-less arXiv id is the source id so revisions of one preprint
// merge into a single row.
func entryToRecord(entry *Entry) *domain.Record {
	arxivID := extractArXivID(strings.TrimSpace(entry.ID))

	pdfURL := entry.pdfLink()
	if pdfURL == "" && arxivID != "" {
		pdfURL = "http://arxiv.org/pdf/" + arxivID
	}

	record := &domain.Record{
		Source: domain.SourceTypeArXiv,
		Paper: domain.Paper{
			DOI:             domain.NormalizeDOI(entry.DOI),
			SourceID:        arxivID,
			Source:          domain.SourceTypeArXiv,
			Title:           normalizeWhitespace(entry.Title),
			Abstract:        normalizeWhitespace(entry.Summary),
			PublicationYear: entry.publicationYear(),
			PDFURL:          pdfURL,
		},
	}

	for _, a := range entry.Authors {
		name := normalizeWhitespace(a.Name)
		if name == "" {
			continue
		}
		record.Authors = append(record.Authors, domain.AuthorRef{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	for _, term := range entry.terms() {
		record.Concepts = append(record.Concepts, domain.ConceptRef{ExternalID: term, Name: term})
	}

	return record
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" gives "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses runs of whitespace.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
