// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes recent streams and playback session control over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlswatch/internal/api/middleware"
	"github.com/ManuGH/hlswatch/internal/domain/playback/manager"
	"github.com/ManuGH/hlswatch/internal/health"
	xlog "github.com/ManuGH/hlswatch/internal/log"
	"github.com/ManuGH/hlswatch/internal/recent"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Recent   *recent.Service
	Sessions *manager.Manager
	Hub      *Hub
	Health   *health.Manager
	Stack    middleware.StackConfig
}

// Server routes HTTP requests to the recent-streams service and the
// session manager.
type Server struct {
	recent   *recent.Service
	sessions *manager.Manager
	hub      *Hub
	health   *health.Manager
	stack    middleware.StackConfig
	logger   zerolog.Logger
}

func NewServer(d Deps) *Server {
	h := d.Health
	if h == nil {
		h = health.NewManager("")
	}
	return &Server{
		recent:   d.Recent,
		sessions: d.Sessions,
		hub:      d.Hub,
		health:   h,
		stack:    d.Stack,
		logger:   xlog.WithComponent("api"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/recent-streams", func(r chi.Router) {
			r.Get("/", s.handleListRecent)
			r.Post("/", s.handleCreateRecent)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleOpenSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/load", s.handleLoadStream)
				r.Put("/quality", s.handleSetQuality)
				r.Post("/retry", s.handleRetry)
				r.Post("/controls", s.handleControl)
				r.Get("/ws", s.handleSessionFeed)
			})
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "no route for "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "", nil)
	})
	return r
}
