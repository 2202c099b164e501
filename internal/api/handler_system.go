package api

import (
	"net/http"

	"github.com/openjobspec/ojs-monitor/internal/monitor"
)

type SystemHandler struct {
	backend Backend
}

func NewSystemHandler(backend Backend) *SystemHandler {
	return &SystemHandler{backend: backend}
}

// Instances handles GET /api/v1/instances
func (h *SystemHandler) Instances(w http.ResponseWriter, r *http.Request) {
	names := h.backend.Instances()
	instances := make([]map[string]any, len(names))
	for i, name := range names {
		instances[i] = map[string]any{"index": i, "name": name}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"version":   monitor.Version,
		"instances": instances,
	})
}

// Memory handles GET /api/v1/memory
func (h *SystemHandler) Memory(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	used, err := h.backend.MemoryUsed(r.Context(), idx)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"used_memory_human": used})
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.backend.Health(r.Context())
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, status, resp)
}
