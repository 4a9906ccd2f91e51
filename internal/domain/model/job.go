// Package model defines the core data types and structures used throughout the taskspring job system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobType represents the kind of asynchronous work a job performs.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeResearch represents a research job backed by an LLM call.
	JobTypeResearch JobType = "research"
	// JobTypeAgent represents a background agent job dispatched to an external agent service.
	JobTypeAgent JobType = "agent"

	// JobStatusPending indicates a job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a job has been claimed and is executing.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates a job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError indicates a job failed to complete.
	JobStatusError JobStatus = "error"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

var (
	// ErrJobNotFound is returned when a job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotClaimable is returned when a conditional status transition finds the
	// job no longer in the expected pre-transition status (claim race lost).
	ErrJobNotClaimable = errors.New("job not in expected status")
)

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeResearch || t == JobTypeAgent
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusError
}

// Terminal returns true once a job can no longer transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// Job represents a unit of asynchronous work with a tracked lifecycle and a single owner.
// Exactly one of Result/Error is set once the job reaches a terminal status.
type Job struct {
	ID          string          `json:"id"                     db:"id"`
	OwnerID     string          `json:"owner_id"               db:"owner_id"`
	TaskID      *string         `json:"task_id,omitempty"      db:"task_id"`
	Type        JobType         `json:"type"                   db:"type"`
	Status      JobStatus       `json:"status"                 db:"status"`
	Payload     json.RawMessage `json:"payload"                db:"payload"`
	Result      *string         `json:"result,omitempty"       db:"result"`
	Error       *string         `json:"error,omitempty"        db:"error"`
	StartedAt   *time.Time      `json:"started_at,omitempty"   db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"             db:"updated_at"`
}

// CreateJobRequest represents a request to create a new job.
type CreateJobRequest struct {
	Type    JobType         `json:"type"`
	TaskID  *string         `json:"task_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if len(r.Payload) == 0 || string(r.Payload) == "null" {
		return errors.New("payload is required")
	}
	if !json.Valid(r.Payload) {
		return errors.New("payload must be valid JSON")
	}
	if r.TaskID != nil && *r.TaskID != "" {
		if _, err := uuid.Parse(*r.TaskID); err != nil {
			return errors.New("task id must be a valid UUID")
		}
	}
	return nil
}

// JobListOptions holds filters and pagination for owner-scoped job listings.
type JobListOptions struct {
	TaskID *string
	Limit  int
	Offset int
}

// EventTypeJob marks push messages that carry a job snapshot.
const EventTypeJob = "job"

// JobEvent is the push message streamed to subscribed clients when a job
// changes state. It carries a snapshot sufficient for client-side
// reconciliation without a follow-up fetch.
type JobEvent struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	JobType   JobType   `json:"job_type"`
	Status    JobStatus `json:"status"`
	Result    *string   `json:"result,omitempty"`
	Error     *string   `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJobEvent builds the push message for the job's current state.
func NewJobEvent(job *Job) JobEvent {
	return JobEvent{
		Type:      EventTypeJob,
		JobID:     job.ID,
		TaskID:    job.TaskID,
		JobType:   job.Type,
		Status:    job.Status,
		Result:    job.Result,
		Error:     job.Error,
		UpdatedAt: job.UpdatedAt,
	}
}
