package domain

import "strings"

// Author is a person identified by display name alone.
//
// Two different people sharing a name collapse into one row. No
// disambiguation is attempted.
type Author struct {
	ID          int64
	Name        string
	Affiliation string
	Metrics     AuthorMetrics
}

// AuthorKey returns the identity key for an author display name.
func AuthorKey(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// AuthorMetrics holds the derived statistics for an author.
// Pointer fields are NULL when the metric cannot be computed.
type AuthorMetrics struct {
	FirstPublicationYear *int
	AuthorAge            *int
	HIndex               int
	DeltaHIndex          int
	TotalPapers          int
	DeltaTotalPapers     int
	RecentCoauthors      int
	CoauthorPageRank     *float64
	TotalCitations       int
	CitationsPerPaper    *float64
	MaxCitations         int
	TotalJournals        int
}

// Journal is a venue identified by its display name.
type Journal struct {
	ID      int64
	Name    string
	ISSN    string
	Metrics JournalMetrics
}

// JournalMetrics holds the derived statistics for a journal.
type JournalMetrics struct {
	MeanCitationsPerPaper      *float64
	DeltaMeanCitationsPerPaper *float64
	HIndex                     int
	DeltaHIndex                int
	MaxCitationsPaper          int
	TotalPapersPublished       int
	DeltaTotalPapersPublished  int
}

// Concept is a subject tag attached to papers with an optional score.
type Concept struct {
	ID         int64
	ExternalID string
	Name       string
}

// Key returns the identity key for the concept: the external id when
// present, otherwise the name.
func (c *Concept) Key() string {
	if id := strings.TrimSpace(c.ExternalID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Name)
}
