package ingestion

import (
	"github.com/helixir/bibliometrics-service/internal/papersources"
	"github.com/helixir/bibliometrics-service/internal/papersources/arxiv"
	"github.com/helixir/bibliometrics-service/internal/papersources/crossref"
	"github.com/helixir/bibliometrics-service/internal/papersources/openalex"
	"github.com/helixir/bibliometrics-service/internal/papersources/semanticscholar"
)

// DefaultRegistry returns a registry with every supported source adapter.
func DefaultRegistry() *papersources.Registry {
	return papersources.NewRegistry(
		arxiv.New(),
		openalex.New(),
		crossref.New(),
		semanticscholar.New(),
	)
}
