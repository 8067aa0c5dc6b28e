package domain

import (
	"strings"
	"time"
)

// doiPrefixes are stripped from DOIs before they are used as identity keys.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI strips resolver prefixes and lowercases a DOI.
// Returns an empty string when nothing usable remains.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			lower = lower[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(lower)
}

// Paper is a reconciled paper row in the canonical store.
//
// Zero values mean "not known". The store binds them as NULL so that a
// record lacking a field can never clear a value another source supplied.
type Paper struct {
	ID int64

	// DOI is the preferred identity key.
	DOI string
	// SourceID is the source-native identifier (OpenAlex work id, arXiv
	// entry id, Semantic Scholar paper id). It is the fallback identity key.
	SourceID string
	// Source records which adapter first produced the row.
	Source SourceType

	Title                string
	Abstract             string
	PublicationYear      int
	JournalID            int64
	PDFURL               string
	TotalCitations       int
	InfluentialCitations int

	// Derived by the metrics engine.
	DeltaCitations       int
	CitationsPerYear     *float64
	RankCitationsPerYear *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasIdentity reports whether the paper carries a usable identity key.
func (p *Paper) HasIdentity() bool {
	return strings.TrimSpace(p.DOI) != "" || strings.TrimSpace(p.SourceID) != ""
}

// Citation is a directed edge from a citing paper to a cited paper.
// Citations are append-only snapshots and are never deduplicated.
type Citation struct {
	ID            int64
	PaperID       int64
	CitingPaperID int64
	AuthorID      *int64
	CitationYear  *int
	CitationCount *int
}

// PlaceholderEntry is a paper whose field still holds a NULL or
// placeholder value. Enrichment sweeps use it to look the paper up again.
type PlaceholderEntry struct {
	ID              int64
	SourceID        string
	DOI             string
	Title           string
	PublicationYear int
}
