package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// WorkerHandler handles worker listing and termination.
type WorkerHandler struct {
	backend Backend
}

func NewWorkerHandler(backend Backend) *WorkerHandler {
	return &WorkerHandler{backend: backend}
}

// List handles GET /api/v1/workers
func (h *WorkerHandler) List(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	workers, err := h.backend.ListWorkers(r.Context(), idx)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if workers == nil {
		workers = []*core.WorkerInfo{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"workers": workers,
		"total":   len(workers),
	})
}

// Get handles GET /api/v1/workers/{name}
func (h *WorkerHandler) Get(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	worker, err := h.backend.WorkerInfo(r.Context(), idx, chi.URLParam(r, "name"))
	if err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"worker": worker})
}

// Terminate handles POST /api/v1/workers/{name}/terminate
//
// Failures carry the delivery classification as the error code:
// no_matching_host, host_unreachable, ownership_denied or command_failed.
func (h *WorkerHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	delivery, err := h.backend.TerminateWorker(r.Context(), idx, chi.URLParam(r, "name"))
	if err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"delivery": delivery})
}
