package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loamdb/loam/internal/api"
	apimiddleware "github.com/loamdb/loam/internal/api/middleware"
)

// setupRouter wires the operational HTTP surface: enqueue endpoints, queue
// size reads, health, and Prometheus metrics.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	queueHandler := api.NewQueueHandler(app.manager)

	r.Route("/v1/queues", func(r chi.Router) {
		r.Post("/embedding/messages", queueHandler.EnqueueEmbedding)
		r.Post("/semantic/messages", queueHandler.EnqueueSemantic)
		r.Get("/{name}/size", queueHandler.Size)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if app.manager.Closing() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
