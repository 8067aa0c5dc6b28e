// Package semanticscholar maps Semantic Scholar paper records onto
// canonical records.
//
// Records come from Graph API responses or dataset exports, one JSON paper
// per line. Semantic Scholar identity is only trusted through the DOI in
// externalIds; papers without one are not reconciled.
//
// Schema reference: https://api.semanticscholar.org/api-docs/graph
package semanticscholar

// Paper is a single Semantic Scholar paper record.
type Paper struct {
	PaperID                  string         `json:"paperId"`
	Title                    string         `json:"title"`
	Abstract                 string         `json:"abstract"`
	Year                     int            `json:"year"`
	Venue                    string         `json:"venue"`
	URL                      string         `json:"url"`
	Journal                  *Journal       `json:"journal,omitempty"`
	Authors                  []Author       `json:"authors"`
	CitationCount            int            `json:"citationCount"`
	InfluentialCitationCount int            `json:"influentialCitationCount"`
	OpenAccessPDF            *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	ExternalIDs              *ExternalIDs   `json:"externalIds,omitempty"`
	FieldsOfStudy            []string       `json:"fieldsOfStudy"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	DOI   string `json:"DOI,omitempty"`
	ArXiv string `json:"ArXiv,omitempty"`
}

// Journal names the publishing journal, when there is one.
type Journal struct {
	Name string `json:"name,omitempty"`
}

// Author is a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF points at a freely available PDF.
type OpenAccessPDF struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
}
