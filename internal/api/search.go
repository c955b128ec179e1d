package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/aptscout/aptscout/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.Search.Search(r.Context(), req.Query)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, search.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "query is required")
	case errors.Is(err, search.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, search.ErrBackendUnavailable.Error())
	case errors.Is(err, search.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
	case errors.Is(err, search.ErrEmptyAnalysis):
		writeError(w, http.StatusBadGateway, search.ErrEmptyAnalysis.Error())
	default:
		zap.L().Error("api: search failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}
