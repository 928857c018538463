package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chronicle/pkg/platform/middleware"
)

// NewRouter wires the query surface and operational endpoints.
func NewRouter(h *Handler, verifier middleware.TokenVerifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	if verifier != nil {
		r.Use(middleware.Actor(verifier))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/entities/{type}/{id}", func(r chi.Router) {
		r.Get("/records", h.Records)
		r.Get("/snapshot", h.Snapshot)
	})

	return r
}
