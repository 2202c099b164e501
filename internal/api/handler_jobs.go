package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openjobspec/ojs-monitor/internal/core"
	"github.com/openjobspec/ojs-monitor/internal/listing"
	"github.com/openjobspec/ojs-monitor/internal/monitor"
)

// JobHandler handles job-related HTTP endpoints.
type JobHandler struct {
	backend Backend
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(backend Backend) *JobHandler {
	return &JobHandler{backend: backend}
}

// JobListResponse is the job table payload. recordsTotal and recordsFiltered
// both carry the count snapshot the page was resolved against.
type JobListResponse struct {
	Draw            int64       `json:"draw"`
	RecordsTotal    int64       `json:"recordsTotal"`
	RecordsFiltered int64       `json:"recordsFiltered"`
	Data            []*core.Job `json:"data"`
}

// List handles GET /api/v1/jobs
//
// Query: instance, queues[], jobstatus[], start, length, search[value], draw.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	values := r.URL.Query()
	draw, ojsErr := int64Param(values, "draw", 0)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	start, ojsErr := int64Param(values, "start", 0)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	if start < 0 {
		WriteError(w, http.StatusBadRequest, core.NewInvalidRequestError("start must not be negative.", map[string]any{"start": start}))
		return
	}
	length, ojsErr := int64Param(values, "length", defaultPageLength)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	if length <= 0 || length > listing.MaxLength {
		WriteError(w, http.StatusBadRequest, core.NewInvalidRequestError(
			fmt.Sprintf("length must be between 1 and %d.", listing.MaxLength),
			map[string]any{"length": length, "max_length": listing.MaxLength}))
		return
	}
	statuses, ojsErr := statusesParam(listParam(values, "jobstatus[]"))
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}

	page, err := h.backend.ListJobs(r.Context(), idx, monitor.JobQuery{
		Queues:   listParam(values, "queues[]"),
		Statuses: statuses,
		Start:    start,
		Length:   length,
		Search:   values.Get("search[value]"),
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}

	data := page.Jobs
	if data == nil {
		data = []*core.Job{}
	}
	WriteJSON(w, http.StatusOK, JobListResponse{
		Draw:            draw,
		RecordsTotal:    page.Total,
		RecordsFiltered: page.Total,
		Data:            data,
	})
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	id := chi.URLParam(r, "id")

	job, err := h.backend.GetJob(r.Context(), idx, id)
	if err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"job": job})
}

// Delete handles DELETE /api/v1/jobs/{id}
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "deleted", h.backend.DeleteJob)
}

// Cancel handles POST /api/v1/jobs/{id}/cancel
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "canceled", h.backend.CancelJob)
}

// Requeue handles POST /api/v1/jobs/{id}/requeue
func (h *JobHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "requeued", h.backend.RequeueJob)
}

func (h *JobHandler) action(w http.ResponseWriter, r *http.Request, result string, fn func(ctx context.Context, idx int, jobID string) error) {
	idx, ojsErr := instanceParam(r)
	if ojsErr != nil {
		WriteError(w, http.StatusBadRequest, ojsErr)
		return
	}
	id := chi.URLParam(r, "id")

	if err := fn(r.Context(), idx, id); err != nil {
		writeBackendError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"job_id": id, "status": result})
}
