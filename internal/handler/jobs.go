package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/indexnow-studio/backend/internal/contextkeys"
	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/service"
)

// JobsHandler handles indexing-job endpoints.
type JobsHandler struct {
	jobs *service.JobService
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(jobs *service.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	q := domain.JobListQuery{
		Search:   r.URL.Query().Get("search"),
		Status:   r.URL.Query().Get("status"),
		Schedule: r.URL.Query().Get("schedule"),
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.jobs.List(r.Context(), userID, q)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Create handles POST /api/jobs.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	var req domain.CreateJobRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	job, err := h.jobs.Create(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, job)
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

// UpdateStatus handles PATCH /api/jobs/{id}/status.
func (h *JobsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	var req domain.UpdateJobStatusRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	job, err := h.jobs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/jobs/{id}.
func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextkeys.UserID).(string)

	if err := h.jobs.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
