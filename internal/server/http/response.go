package httpserver

import (
	"time"

	"github.com/helixir/bibliometrics-service/internal/ranking"
)

type errorResponse struct {
	Error string `json:"error"`
}

// rankResponse mirrors ranking.Result. Papers is never null so clients can
// iterate it without a nil check.
type rankResponse struct {
	Query      string                `json:"query"`
	Papers     []ranking.RankedPaper `json:"papers"`
	NoResults  bool                  `json:"no_results"`
	CorpusSize int                   `json:"corpus_size"`
	ModelRunID string                `json:"model_run_id,omitempty"`
}

type reloadResponse struct {
	Status      string    `json:"status"`
	ModelRunID  string    `json:"model_run_id"`
	TrainedAt   time.Time `json:"trained_at"`
	Fingerprint string    `json:"fingerprint"`
	Features    []string  `json:"features"`
}

func toRankResponse(res *ranking.Result) rankResponse {
	papers := res.Papers
	if papers == nil {
		papers = []ranking.RankedPaper{}
	}
	return rankResponse{
		Query:      res.Query,
		Papers:     papers,
		NoResults:  res.NoResults,
		CorpusSize: res.CorpusSize,
		ModelRunID: res.RunID,
	}
}

func toReloadResponse(a *ranking.Artifact) reloadResponse {
	features := make([]string, 0, len(a.Kept))
	for _, idx := range a.Kept {
		if idx >= 0 && idx < len(a.Features) {
			features = append(features, a.Features[idx])
		}
	}
	return reloadResponse{
		Status:      "reloaded",
		ModelRunID:  a.RunID,
		TrainedAt:   a.TrainedAt,
		Fingerprint: a.Fingerprint,
		Features:    features,
	}
}
