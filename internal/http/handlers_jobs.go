// Package httpx provides HTTP handlers and utilities for the taskspring job API.
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/taskspring/taskspring-api/internal/domain/model"
	"github.com/taskspring/taskspring-api/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc *service.JobService
}

// CreateJob handles HTTP requests to enqueue a new job for the caller.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs handles HTTP requests to list the caller's jobs, newest first.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	opts := model.JobListOptions{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
	}
	if taskID := r.URL.Query().Get("task_id"); taskID != "" {
		opts.TaskID = &taskID
	}

	jobs, err := h.Svc.ListForOwner(r.Context(), identity.UserID, &opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// GetJob handles HTTP requests to fetch a single job owned by the caller.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	job, err := h.Svc.GetForOwner(r.Context(), identity.UserID, jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// writeMissingIdentity reports requests that reached an owner-scoped handler
// without the auth middleware having run.
func writeMissingIdentity(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}

// parseIntQuery parses an integer query parameter, returning def when absent
// or malformed.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
