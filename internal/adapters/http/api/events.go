package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/pulse/internal/domain/model"
)

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	Type     string         `json:"type"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e eventRequest) toEvent() (model.RatingEvent, error) {
	t, err := model.ParseEventType(e.Type)
	if err != nil {
		return model.RatingEvent{}, err
	}
	ev := model.RatingEvent{Type: t, UserID: e.UserID, Metadata: e.Metadata}
	if err := ev.Validate(); err != nil {
		return model.RatingEvent{}, err
	}
	return ev, nil
}

// handlePostEvent recomputes the user's rating and returns the new state.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	st, err := s.deps.ProcessEvent(r.Context(), ev)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
