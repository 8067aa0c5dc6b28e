// Package crossref maps CrossRef work records onto canonical records.
//
// Records are CrossRef "work" message items, one JSON object per line, as
// found in the public data file or in /works API responses.
//
// Schema reference: https://api.crossref.org/swagger-ui/index.html
package crossref

// Work is a single CrossRef work item.
type Work struct {
	DOI                 string   `json:"DOI"`
	Title               []string `json:"title"`
	Abstract            string   `json:"abstract"`
	ContainerTitle      []string `json:"container-title"`
	ISSN                []string `json:"ISSN"`
	IsReferencedByCount int      `json:"is-referenced-by-count"`
	ReferencesCount     int      `json:"references-count"`
	URL                 string   `json:"URL"`
	Link                []Link   `json:"link"`
	Author              []Author `json:"author"`
	Subject             []string `json:"subject"`
	PublishedPrint      *Date    `json:"published-print"`
	PublishedOnline     *Date    `json:"published-online"`
	Published           *Date    `json:"published"`
}

// Date is CrossRef's partial date: [[year, month, day]] with trailing parts
// optional.
type Date struct {
	DateParts [][]*int `json:"date-parts"`
}

// Year returns the leading year part, or 0 when absent.
func (d *Date) Year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == nil {
		return 0
	}
	return *d.DateParts[0][0]
}

// Author is a contributor in the author role.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation names an author's institution.
type Affiliation struct {
	Name string `json:"name"`
}

// Link is a full-text link.
type Link struct {
	URL         string `json:"URL"`
	ContentType string `json:"content-type"`
}
