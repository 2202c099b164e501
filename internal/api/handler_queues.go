package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type QueueHandler struct {
	backend Backend
}

func NewQueueHandler(backend Backend) *QueueHandler {
	return &QueueHandler{backend: backend}
}

// List handles GET /api/v1/queues
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	queues, err := h.backend.ListQueues(r.Context(), idx)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"queues": queues,
		"total":  len(queues),
	})
}

// Delete handles DELETE /api/v1/queues/{name}
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	name := chi.URLParam(r, "name")

	if err := h.backend.DeleteQueue(r.Context(), idx, name); err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"queue": name, "status": "deleted"})
}

// Empty handles POST /api/v1/queues/{name}/empty
func (h *QueueHandler) Empty(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	name := chi.URLParam(r, "name")

	if err := h.backend.EmptyQueue(r.Context(), idx, name); err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"queue": name, "status": "emptied"})
}
