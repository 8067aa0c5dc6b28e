package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/ingestion"
)

// drainIngester reads every job to EOF and counts the records it saw.
type drainIngester struct {
	names   []string
	records map[domain.SourceType]int
	err     error
}

func (d *drainIngester) IngestAll(_ context.Context, jobs []ingestion.Job) ([]*ingestion.Report, error) {
	if d.records == nil {
		d.records = make(map[domain.SourceType]int)
	}
	reports := make([]*ingestion.Report, len(jobs))
	for i, job := range jobs {
		d.names = append(d.names, job.Name)
		source := job.Adapter.Source()
		for {
			_, err := job.Reader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return reports, err
			}
			d.records[source]++
		}
		reports[i] = &ingestion.Report{Source: source}
	}
	return reports, d.err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const atomFeed = `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>http://arxiv.org/abs/2301.00001v1</id><title>A</title></entry></feed>`

func TestInboxSweeper_Sweep(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "openalex", "b.jsonl"), `{"id":"W1"}`+"\n"+`{"id":"W2"}`+"\n")
	writeFile(t, filepath.Join(dir, "openalex", "a.jsonl"), `{"id":"W3"}`+"\n")
	writeFile(t, filepath.Join(dir, "openalex", ".partial"), `{"id":"W4"}`)
	writeFile(t, filepath.Join(dir, "arxiv", "feed.xml"), atomFeed)
	writeFile(t, filepath.Join(dir, "unknown", "x.jsonl"), `{}`)

	ingester := &drainIngester{}
	sweeper := NewInboxSweeper(dir, ingestion.DefaultRegistry(), ingester, zerolog.Nop())

	reports, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, []string{
		filepath.Join(dir, "arxiv", "feed.xml"),
		filepath.Join(dir, "openalex", "a.jsonl"),
		filepath.Join(dir, "openalex", "b.jsonl"),
	}, ingester.names)
	assert.Equal(t, 1, ingester.records[domain.SourceTypeArXiv])
	assert.Equal(t, 3, ingester.records[domain.SourceTypeOpenAlex])

	assert.FileExists(t, filepath.Join(dir, "openalex", DoneDir, "a.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "arxiv", DoneDir, "feed.xml"))
	assert.NoFileExists(t, filepath.Join(dir, "openalex", "b.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "openalex", ".partial"))
	assert.FileExists(t, filepath.Join(dir, "unknown", "x.jsonl"))

	// Processed files are not picked up again.
	reports, err = NewInboxSweeper(dir, ingestion.DefaultRegistry(), &drainIngester{}, zerolog.Nop()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestInboxSweeper_FailedRunKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crossref", "works.jsonl")
	writeFile(t, path, `{"DOI":"10.1/a"}`+"\n")

	ingester := &drainIngester{err: errors.New("stream broke")}
	_, err := NewInboxSweeper(dir, ingestion.DefaultRegistry(), ingester, zerolog.Nop()).Sweep(context.Background())

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "stream broke"))
	assert.FileExists(t, path)
}

func TestInboxSweeper_MissingDir(t *testing.T) {
	sweeper := NewInboxSweeper(filepath.Join(t.TempDir(), "absent"), ingestion.DefaultRegistry(), &drainIngester{}, zerolog.Nop())
	reports, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Nil(t, reports)
}
