package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/bibliometrics-service/internal/domain"
	"github.com/helixir/bibliometrics-service/internal/observability"
)

const maxQueryLength = 1000

type rankRequest struct {
	Query string `validate:"required,max=1000"`
	Limit int    `validate:"gte=1"`
}

// rank handles GET /api/v1/rank?q=...&limit=...
func (s *Server) rank(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := rankRequest{
		Query: strings.TrimSpace(params.Get("q")),
		Limit: s.limits.Default,
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if req.Limit > s.limits.Max {
		req.Limit = s.limits.Max
	}

	logger := s.logger.With().
		Str("request_id", observability.RequestIDFromContext(r.Context())).
		Logger()

	res, err := s.ranker.Rank(r.Context(), req.Query, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrArtifactMissing), errors.Is(err, domain.ErrArtifactMismatch):
			logger.Error().Err(err).Msg("ranking unavailable")
			writeError(w, http.StatusServiceUnavailable, "ranking model unavailable")
		default:
			logger.Error().Err(err).Msg("rank request failed")
			writeError(w, http.StatusInternalServerError, "failed to rank papers")
		}
		return
	}

	writeJSON(w, http.StatusOK, toRankResponse(res))
}

// reloadArtifact handles POST /api/v1/ranking/reload. A failed reload keeps
// the previous artifact in service.
func (s *Server) reloadArtifact(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With().
		Str("request_id", observability.RequestIDFromContext(r.Context())).
		Logger()

	if err := s.reloader.Reload(r.Context()); err != nil {
		s.metrics.RecordArtifactReload("failed")
		logger.Error().Err(err).Msg("estimator reload failed, keeping current artifact")
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrArtifactMismatch) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	s.metrics.RecordArtifactReload("ok")
	artifact := s.reloader.Current()
	logger.Info().Str("model_run_id", artifact.RunID).Msg("estimator reloaded")
	writeJSON(w, http.StatusOK, toReloadResponse(artifact))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Query":
		if fe.Tag() == "max" {
			return "q must be at most " + strconv.Itoa(maxQueryLength) + " characters"
		}
		return "q is required"
	case "Limit":
		return "limit must be at least 1"
	}
	return "invalid request"
}
