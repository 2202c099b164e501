package api

import (
	"net/http"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// BulkHandler handles actions that span many jobs, queues or workers. Each
// responds 200 with the per-unit BatchResult even when some units failed.
type BulkHandler struct {
	backend Backend
}

func NewBulkHandler(backend Backend) *BulkHandler {
	return &BulkHandler{backend: backend}
}

// BulkRequest selects the units of a bulk action. Omitted fields select
// everything; empty arrays select nothing.
type BulkRequest struct {
	Queues   []string `json:"queues"`
	Statuses []string `json:"statuses"`
	Workers  []string `json:"workers"`
	All      bool     `json:"all"`
}

func (h *BulkHandler) decode(w http.ResponseWriter, r *http.Request) (int, *BulkRequest, bool) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return 0, nil, false
	}
	var req BulkRequest
	if ojsErr := decodeBody(r, &req); ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return 0, nil, false
	}
	return idx, &req, true
}

func writeBatch(w http.ResponseWriter, result core.BatchResult, err error) {
	if err != nil {
		writeBackendError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"result": result})
}

// Clear handles POST /api/v1/jobs/clear
func (h *BulkHandler) Clear(w http.ResponseWriter, r *http.Request) {
	idx, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	statuses, ojsErr := statusesParam(req.Statuses)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	result, err := h.backend.ClearPartitions(r.Context(), idx, req.Queues, statuses)
	writeBatch(w, result, err)
}

// RequeueFailed handles POST /api/v1/jobs/requeue-failed
func (h *BulkHandler) RequeueFailed(w http.ResponseWriter, r *http.Request) {
	idx, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.backend.RequeueAllFailed(r.Context(), idx, req.Queues)
	writeBatch(w, result, err)
}

// CancelQueued handles POST /api/v1/jobs/cancel-queued
func (h *BulkHandler) CancelQueued(w http.ResponseWriter, r *http.Request) {
	idx, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.backend.CancelAllQueued(r.Context(), idx, req.Queues)
	writeBatch(w, result, err)
}

// DeleteQueues handles POST /api/v1/queues/delete
func (h *BulkHandler) DeleteQueues(w http.ResponseWriter, r *http.Request) {
	idx, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.backend.DeleteQueues(r.Context(), idx, req.Queues)
	writeBatch(w, result, err)
}

// TerminateWorkers handles POST /api/v1/workers/terminate
func (h *BulkHandler) TerminateWorkers(w http.ResponseWriter, r *http.Request) {
	idx, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if !req.All && len(req.Workers) == 0 {
		WriteError(w, http.StatusBadRequest, core.NewInvalidRequestError("Name at least one worker or set all.", nil))
		return
	}

	result, err := h.backend.TerminateWorkers(r.Context(), idx, req.Workers, req.All)
	writeBatch(w, result, err)
}
