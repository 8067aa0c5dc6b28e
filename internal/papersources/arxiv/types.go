// Package arxiv maps arXiv Atom feed entries onto canonical records.
//
// arXiv exports and API responses are Atom XML feeds; FeedReader splits a
// feed into one raw <entry> element per record.
package arxiv

import (
	"strings"
	"time"
)

// Entry is one <entry> of an arXiv Atom feed. Elements in the arxiv
// namespace (doi, affiliation, primary_category) match by local name.
type Entry struct {
	ID              string     `xml:"id"`
	Title           string     `xml:"title"`
	Summary         string     `xml:"summary"`
	Published       string     `xml:"published"`
	Authors         []Author   `xml:"author"`
	Categories      []Category `xml:"category"`
	Links           []Link     `xml:"link"`
	DOI             string     `xml:"doi"`
	PrimaryCategory Category   `xml:"primary_category"`
}

// Author is an entry author with an optional arxiv:affiliation.
type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

// Category is an arXiv subject term such as cs.LG.
type Category struct {
	Term string `xml:"term,attr"`
}

// Link is an Atom link. The PDF link carries title="pdf".
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// publicationYear returns the year of the first version, or 0 when the
// timestamp is missing or malformed.
func (e *Entry) publicationYear() int {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return 0
	}
	return t.Year()
}

// pdfLink returns the href of the entry's PDF link, if any.
func (e *Entry) pdfLink() string {
	for _, link := range e.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			return strings.TrimSpace(link.Href)
		}
	}
	return ""
}

// terms returns the primary category followed by the other categories,
// each term once.
func (e *Entry) terms() []string {
	all := append([]Category{e.PrimaryCategory}, e.Categories...)
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, cat := range all {
		term := strings.TrimSpace(cat.Term)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
