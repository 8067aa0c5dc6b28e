// Package merge builds the fill-only upsert statements that reconcile
// records from several sources into one canonical row per identity key.
//
// A merge is described declaratively by a Schema: the table, the columns
// that may serve as the conflict key, and the mergeable columns with their
// placeholder kind. BuildUpsert turns a schema, a key and a set of values
// into a single INSERT ... ON CONFLICT statement that only fills columns
// whose stored value is NULL or a placeholder ('' for text, 0 for numbers).
package merge

import "fmt"

// Kind selects the placeholder value a column is compared against.
type Kind int

const (
	// Text columns treat NULL and '' as unset.
	Text Kind = iota
	// Numeric columns treat NULL and 0 as unset.
	Numeric
)

// Placeholder returns the SQL literal of the kind's placeholder value.
func (k Kind) Placeholder() string {
	if k == Numeric {
		return "0"
	}
	return "''"
}

// Field is a mergeable column.
type Field struct {
	Name string
	Kind Kind
}

// Schema declares how rows of one table are merged.
type Schema struct {
	Table string
	// Keys are the columns allowed as the conflict target. Each must have
	// a UNIQUE constraint and must also appear in Fields.
	Keys   []string
	Fields []Field
}

// Field looks up a mergeable column by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsKey reports whether column may be used as the conflict target.
func (s Schema) IsKey(column string) bool {
	for _, k := range s.Keys {
		if k == column {
			return true
		}
	}
	return false
}

// Predicate returns the SQL condition matching rows whose column still
// holds NULL or the placeholder value, e.g. "(total_citations IS NULL OR
// total_citations = 0)".
func (s Schema) Predicate(column string) (string, error) {
	f, ok := s.Field(column)
	if !ok {
		return "", fmt.Errorf("unknown %s column %q", s.Table, column)
	}
	return fmt.Sprintf("(%s IS NULL OR %s = %s)", f.Name, f.Name, f.Kind.Placeholder()), nil
}

// Paper, author, journal and concept schemas. Field order is the column
// order of generated statements.
var (
	PaperSchema = Schema{
		Table: "papers",
		Keys:  []string{"doi", "openalex_id"},
		Fields: []Field{
			{Name: "doi", Kind: Text},
			{Name: "openalex_id", Kind: Text},
			{Name: "title", Kind: Text},
			{Name: "abstract", Kind: Text},
			{Name: "publication_year", Kind: Numeric},
			{Name: "journal_id", Kind: Numeric},
			{Name: "pdf_url", Kind: Text},
			{Name: "total_citations", Kind: Numeric},
			{Name: "influential_citations", Kind: Numeric},
			{Name: "source", Kind: Text},
		},
	}

	AuthorSchema = Schema{
		Table: "authors",
		Keys:  []string{"name"},
		Fields: []Field{
			{Name: "name", Kind: Text},
			{Name: "affiliation", Kind: Text},
		},
	}

	JournalSchema = Schema{
		Table: "journals",
		Keys:  []string{"journal_name"},
		Fields: []Field{
			{Name: "journal_name", Kind: Text},
			{Name: "issn", Kind: Text},
		},
	}

	ConceptSchema = Schema{
		Table: "concepts",
		Keys:  []string{"openalex_id"},
		Fields: []Field{
			{Name: "openalex_id", Kind: Text},
			{Name: "name", Kind: Text},
		},
	}
)
