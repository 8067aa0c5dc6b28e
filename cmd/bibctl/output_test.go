package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/ranking"
)

func TestWriteRankTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeRankTable(&buf, &ranking.Result{
		Query: "neural network",
		Papers: []ranking.RankedPaper{
			{Title: "Deep  neural\nnetworks", PublicationYear: 2015, TotalCitations: 120, Score: 0.9123},
			{Title: "Undated", Score: 0.5},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "0.912")
	assert.Contains(t, lines[1], "Deep neural networks")
	assert.Contains(t, lines[2], " - ")
}

func TestWriteRankTable_NoResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRankTable(&buf, &ranking.Result{Query: "quantum", NoResults: true}))
	assert.Equal(t, "no papers match \"quantum\"\n", buf.String())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", truncate(" a \n b ", 10))
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.SourceType
		wantErr bool
	}{
		{in: "arxiv", want: domain.SourceTypeArXiv},
		{in: "semantic_scholar", want: domain.SourceTypeSemanticScholar},
		{in: "pubmed", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseSource(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
