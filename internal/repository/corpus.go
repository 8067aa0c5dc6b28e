package repository

import (
	"context"
	"strings"
)

// FeatureNames lists the estimator features in column order.
var FeatureNames = []string{
	"publication_year",
	"delta_citations",
	"journal_h_index",
	"mean_citations_per_paper",
	"total_papers_published",
	"num_authors",
	"avg_author_h_index",
	"avg_author_total_papers",
	"avg_author_total_citations",
	"total_citations",
}

// RankingRow is one paper joined with its journal and author aggregates.
type RankingRow struct {
	PaperID              int64
	Title                string
	Abstract             string
	Authors              []string
	PDFURL               string
	PublicationYear      int
	Journal              string
	TotalCitations       int
	InfluentialCitations int

	// Features holds the estimator inputs in FeatureNames order with
	// missing values imputed as 0.
	Features []float64
}

// AuthorsDisplay joins the author names for display.
func (r RankingRow) AuthorsDisplay() string {
	return strings.Join(r.Authors, ", ")
}

// CorpusReader loads the full corpus for ranking and training.
type CorpusReader interface {
	LoadRankingRows(ctx context.Context) ([]RankingRow, error)
}

// Compile-time interface verification.
var _ CorpusReader = (*PgCorpusReader)(nil)

// PgCorpusReader is a PostgreSQL implementation of CorpusReader.
type PgCorpusReader struct {
	db DBTX
}

// NewPgCorpusReader creates a new PostgreSQL corpus reader.
func NewPgCorpusReader(db DBTX) *PgCorpusReader {
	return &PgCorpusReader{db: db}
}

// LoadRankingRows returns every paper ordered by id.
func (r *PgCorpusReader) LoadRankingRows(ctx context.Context) ([]RankingRow, error) {
	query := `
		SELECT
			p.id,
			COALESCE(p.title, ''),
			COALESCE(p.abstract, ''),
			COALESCE(array_agg(a.name ORDER BY pa.author_position NULLS LAST, a.name) FILTER (WHERE a.name IS NOT NULL), '{}'),
			COALESCE(p.pdf_url, ''),
			COALESCE(p.publication_year, 0),
			COALESCE(j.journal_name, ''),
			COALESCE(p.total_citations, 0),
			COALESCE(p.influential_citations, 0),
			COALESCE(p.delta_citations, 0)::float8,
			COALESCE(j.journal_h_index, 0)::float8,
			COALESCE(j.mean_citations_per_paper, 0)::float8,
			COALESCE(j.total_papers_published, 0)::float8,
			COUNT(pa.author_id)::float8,
			COALESCE(AVG(a.h_index), 0)::float8,
			COALESCE(AVG(a.total_papers), 0)::float8,
			COALESCE(AVG(a.total_citations), 0)::float8
		FROM papers p
		LEFT JOIN journals j ON p.journal_id = j.id
		LEFT JOIN paper_authors pa ON p.id = pa.paper_id
		LEFT JOIN authors a ON pa.author_id = a.id
		GROUP BY p.id, j.journal_name, j.journal_h_index, j.mean_citations_per_paper, j.total_papers_published
		ORDER BY p.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, storageError("load ranking rows", err)
	}
	defer rows.Close()

	var out []RankingRow
	for rows.Next() {
		var (
			row                                  RankingRow
			delta, jh, jmean, jtotal, numAuthors float64
			avgH, avgPapers, avgCitations        float64
		)
		if err := rows.Scan(
			&row.PaperID, &row.Title, &row.Abstract, &row.Authors, &row.PDFURL,
			&row.PublicationYear, &row.Journal, &row.TotalCitations, &row.InfluentialCitations,
			&delta, &jh, &jmean, &jtotal, &numAuthors, &avgH, &avgPapers, &avgCitations,
		); err != nil {
			return nil, storageError("scan ranking row", err)
		}
		row.Features = []float64{
			float64(row.PublicationYear),
			delta,
			jh,
			jmean,
			jtotal,
			numAuthors,
			avgH,
			avgPapers,
			avgCitations,
			float64(row.TotalCitations),
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate ranking rows", err)
	}
	return out, nil
}
