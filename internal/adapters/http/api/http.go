// Package api exposes the rating engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// Dependencies required by the HTTP handlers. internal/app.Service satisfies it.
type Dependencies interface {
	ProcessEvent(ctx context.Context, ev model.RatingEvent) (model.RatingState, error)
	GetState(ctx context.Context, userID string) (model.RatingState, error)
	CheckAndFinalizePastDays(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string, limit int) ([]model.RatingHistoryEntry, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the rating API.
type Server struct {
	deps   Dependencies
	stats  StatsProvider
	logger logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{deps: deps, stats: stats}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all routes to r behind the metrics middleware.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Post("/events", s.handlePostEvent)
		r.Get("/state/{userID}", s.handleGetState)
		r.Post("/finalize/{userID}", s.handleFinalize)
		r.Get("/history/{userID}", s.handleGetHistory)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err onto a status and code and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	writeError(w, status, code, WrapKind(op, kindFor(status), err))
}
