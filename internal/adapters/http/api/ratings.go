package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type finalizeResponse struct {
	UserID    string `json:"userId"`
	Finalized int    `json:"finalized"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_state"
	st, err := s.deps.GetState(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize"
	userID := chi.URLParam(r, "userID")
	n, err := s.deps.CheckAndFinalizePastDays(r.Context(), userID)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{UserID: userID, Finalized: n})
}

// handleGetHistory lists locked entries newest first. A missing limit lets
// the service apply its maximum.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", raw)))
			return
		}
		limit = n
	}
	entries, err := s.deps.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
