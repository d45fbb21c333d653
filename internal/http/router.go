// Package http hosts the service's public HTTP surface: health routes,
// the JSON turn endpoint and the realtime WebSocket mount.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ai-interview-engine/internal/observability"
	"ai-interview-engine/internal/realtime"
	"ai-interview-engine/internal/service/interview"
	"ai-interview-engine/internal/store"
)

// Deps are the collaborators the router exposes over HTTP.
type Deps struct {
	Repo         store.Repository
	Orchestrator *interview.Orchestrator
	Realtime     *realtime.Handler
	Logger       zerolog.Logger
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1/interviews/{interviewID}", func(r chi.Router) {
		h := &turnHandler{repo: deps.Repo, orchestrator: deps.Orchestrator, logger: deps.Logger}
		r.Post("/turn", h.handleTurn)
		if deps.Realtime != nil {
			r.Get("/realtime", deps.Realtime.ServeHTTP)
		}
	})

	return r
}
