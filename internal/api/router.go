package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthCheckTimeout bounds each component check on the health endpoint.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/keys", s.handleListKeys)

		r.Route("/decks", func(r chi.Router) {
			r.Get("/", s.handleListDecks)
			r.Post("/rescan", s.handleRescan)

			r.Route("/{serial}", func(r chi.Router) {
				r.Get("/", s.handleGetDeck)

				r.Route("/buttons/{position}", func(r chi.Router) {
					r.Get("/", s.handleGetButton)
					r.Get("/face", s.handleButtonFace)
					r.Put("/text", s.handleSetText)
					r.Put("/colors", s.handleSetColors)
					r.Put("/font-size", s.handleSetFontSize)
					r.Put("/font", s.handleSetFont)
					r.Put("/background-image", s.handleSetBackgroundImage)
					r.Post("/execute", s.handleExecute)

					r.Route("/actions", func(r chi.Router) {
						r.Post("/", s.handleAddAction)
						r.Patch("/{id}", s.handleUpdateAction)
						r.Delete("/{id}", s.handleDeleteAction)
					})
				})
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports the server version and the state of each
// registered component. Any failing component yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	components := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"version":    s.version,
		"decks":      s.decks.Len(),
		"clients":    s.hub.ClientCount(),
		"components": components,
	})
}

// handleListKeys returns the key catalogue grouped as the UI lists it.
func (s *Server) handleListKeys(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": s.keys.Groups(),
	})
}
