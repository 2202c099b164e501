package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openjobspec/ojs-monitor/internal/api"
)

// NewRouter creates the HTTP router with all dashboard routes.
func NewRouter(backend api.Backend) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(api.RequestID)
	r.Use(api.NoStore)
	r.Use(api.ValidateContentType)
	r.Use(api.PrometheusMiddleware)

	systemHandler := api.NewSystemHandler(backend)
	jobHandler := api.NewJobHandler(backend)
	queueHandler := api.NewQueueHandler(backend)
	workerHandler := api.NewWorkerHandler(backend)
	bulkHandler := api.NewBulkHandler(backend)

	r.Get("/health", systemHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/instances", systemHandler.Instances)
		r.Get("/memory", systemHandler.Memory)

		// Jobs
		r.Get("/jobs", jobHandler.List)
		r.Post("/jobs/clear", bulkHandler.Clear)
		r.Post("/jobs/requeue-failed", bulkHandler.RequeueFailed)
		r.Post("/jobs/cancel-queued", bulkHandler.CancelQueued)
		r.Get("/jobs/{id}", jobHandler.Get)
		r.Delete("/jobs/{id}", jobHandler.Delete)
		r.Post("/jobs/{id}/cancel", jobHandler.Cancel)
		r.Post("/jobs/{id}/requeue", jobHandler.Requeue)

		// Queues
		r.Get("/queues", queueHandler.List)
		r.Post("/queues/delete", bulkHandler.DeleteQueues)
		r.Delete("/queues/{name}", queueHandler.Delete)
		r.Post("/queues/{name}/empty", queueHandler.Empty)

		// Workers
		r.Get("/workers", workerHandler.List)
		r.Post("/workers/terminate", bulkHandler.TerminateWorkers)
		r.Get("/workers/{name}", workerHandler.Get)
		r.Post("/workers/{name}/terminate", workerHandler.Terminate)
	})

	return r
}
