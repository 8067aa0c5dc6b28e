package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/ingestion"
	"github.com/helixir/bibliometrics-service/internal/observability"
	"github.com/helixir/bibliometrics-service/internal/papersources"
)

// DoneDir is the subdirectory processed inbox files are moved to.
const DoneDir = "done"

// Ingester runs ingestion jobs.
type Ingester interface {
	IngestAll(ctx context.Context, jobs []ingestion.Job) ([]*ingestion.Report, error)
}

// InboxSweeper ingests export files dropped under <dir>/<source>/. After a
// successful run each file moves to <dir>/<source>/done/. Files of a
// failed run stay in place and are retried on the next sweep; ingestion
// is idempotent under the fill-only merge.
type InboxSweeper struct {
	dir      string
	registry *papersources.Registry
	ingester Ingester
	logger   zerolog.Logger
}

// NewInboxSweeper creates a sweeper over dir.
func NewInboxSweeper(dir string, registry *papersources.Registry, ingester Ingester, logger zerolog.Logger) *InboxSweeper {
	return &InboxSweeper{
		dir:      dir,
		registry: registry,
		ingester: ingester,
		logger:   logger.With().Str("component", "inbox").Logger(),
	}
}

type inboxFile struct {
	path string
	file *os.File
}

// Sweep ingests every pending file and returns the reports in file order.
func (s *InboxSweeper) Sweep(ctx context.Context) ([]*ingestion.Report, error) {
	logger := observability.LoggerFromContext(ctx, s.logger)

	files, jobs, err := s.collect()
	defer func() {
		for _, f := range files {
			_ = f.file.Close()
		}
	}()
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		logger.Debug().Str("dir", s.dir).Msg("inbox empty")
		return nil, nil
	}

	reports, err := s.ingester.IngestAll(ctx, jobs)
	if err != nil {
		return reports, fmt.Errorf("sweep inbox: %w", err)
	}

	for _, f := range files {
		_ = f.file.Close()
		if err := moveToDone(f.path); err != nil {
			return reports, err
		}
		logger.Info().Str("file", f.path).Msg("inbox file ingested")
	}
	return reports, nil
}

// collect opens pending files for every registered source.
func (s *InboxSweeper) collect() ([]inboxFile, []ingestion.Job, error) {
	var (
		files []inboxFile
		jobs  []ingestion.Job
	)
	for _, source := range s.registry.Sources() {
		adapter, err := s.registry.Get(source)
		if err != nil {
			return files, nil, err
		}

		sourceDir := filepath.Join(s.dir, string(source))
		names, err := pendingFiles(sourceDir)
		if err != nil {
			return files, nil, err
		}
		for _, name := range names {
			path := filepath.Join(sourceDir, name)
			f, err := os.Open(path)
			if err != nil {
				return files, nil, fmt.Errorf("open inbox file: %w", err)
			}
			files = append(files, inboxFile{path: path, file: f})
			jobs = append(jobs, ingestion.Job{
				Name:    path,
				Adapter: adapter,
				Reader:  s.registry.Reader(source, f),
			})
		}
	}
	return files, jobs, nil
}

// pendingFiles lists regular, non-hidden files in dir in name order. A
// missing dir has no pending files.
func pendingFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

func moveToDone(path string) error {
	doneDir := filepath.Join(filepath.Dir(path), DoneDir)
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return fmt.Errorf("create done dir: %w", err)
	}
	if err := os.Rename(path, filepath.Join(doneDir, filepath.Base(path))); err != nil {
		return fmt.Errorf("move %s to done: %w", path, err)
	}
	return nil
}
