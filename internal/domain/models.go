// Package domain provides the entities, canonical record shape and error
// taxonomy of the bibliometrics service.
package domain

// SourceType identifies the external source a record came from.
type SourceType string

const (
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeCrossRef        SourceType = "crossref"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// AllSourceTypes returns every supported source in a stable order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeArXiv,
		SourceTypeOpenAlex,
		SourceTypeCrossRef,
		SourceTypeSemanticScholar,
	}
}

// IsValid reports whether s is a supported source.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeArXiv, SourceTypeOpenAlex, SourceTypeCrossRef, SourceTypeSemanticScholar:
		return true
	default:
		return false
	}
}

// Outcome is the per-record result of an ingestion.
type Outcome string

const (
	OutcomeInserted          Outcome = "inserted"
	OutcomeUpdated           Outcome = "updated"
	OutcomeSkippedNoIdentity Outcome = "skipped-no-identity"
	OutcomeSkippedError      Outcome = "skipped-error"
)

// AuthorRef is an author as named by a source record.
type AuthorRef struct {
	Name        string
	Affiliation string
}

// ConceptRef is a concept as named by a source record, with an optional
// relevance score for the paper it was attached to.
type ConceptRef struct {
	ExternalID string
	Name       string
	Score      *float64
}

// Record is a source-native record mapped onto canonical fields.
// Adapters produce it; the ingestion runner writes it through the store.
type Record struct {
	Source      SourceType
	Paper       Paper
	Authors     []AuthorRef
	Journal     string
	JournalISSN string
	Concepts    []ConceptRef

	// ReferencedWorks lists identifiers (DOI or source id) of works this
	// paper cites. Edges are recorded only for works already in the store.
	ReferencedWorks []string
}
