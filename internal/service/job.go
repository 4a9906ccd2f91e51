// Package service provides the business logic layer for the job system.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskspring/taskspring-api/internal/core"
	"github.com/taskspring/taskspring-api/internal/data"
	"github.com/taskspring/taskspring-api/internal/domain/model"
	apperrors "github.com/taskspring/taskspring-api/internal/errors"
	"github.com/taskspring/taskspring-api/internal/observability/metrics"
	"github.com/taskspring/taskspring-api/internal/observability/statsd"
)

const defaultSnapshotTTL = 24 * time.Hour

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo        core.JobRepository             // Required: job repository
	Executors   map[model.JobType]core.Executor // Required: executor per job type
	Publisher   core.Publisher                 // Optional: push hub for state change events
	Cache       core.CacheRepository           // Optional: job snapshot cache for polling clients
	SnapshotTTL time.Duration                  // Optional: snapshot cache TTL, defaults to 24h
	Logger      *slog.Logger                   // Optional: structured logger
	Metrics     statsd.Sink                    // Optional: lifecycle metric sink
}

// JobService provides business logic for job operations.
//
// This service manages:
// - job creation and owner-scoped reads
// - claiming and executing pending jobs through per-type executors
// - broadcasting state changes to the owner's connected clients
// - maintaining the job snapshot cache for polling fallback.
type JobService struct {
	repo        core.JobRepository
	executors   map[model.JobType]core.Executor
	publisher   core.Publisher
	cache       core.CacheRepository
	snapshotTTL time.Duration
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if len(opts.Executors) == 0 {
		return nil, errors.New("at least one executor is required")
	}
	for jobType := range opts.Executors {
		if !jobType.Valid() {
			return nil, fmt.Errorf("executor registered for invalid job type: %s", jobType)
		}
	}

	snapshotTTL := opts.SnapshotTTL
	if snapshotTTL <= 0 {
		snapshotTTL = defaultSnapshotTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:        opts.Repo,
		executors:   opts.Executors,
		publisher:   opts.Publisher,
		cache:       opts.Cache,
		snapshotTTL: snapshotTTL,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create validates the request and inserts a new pending job for the owner.
func (s *JobService) Create(
	ctx context.Context,
	ownerID string,
	req *model.CreateJobRequest,
) (*model.Job, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if _, ok := s.executors[req.Type]; !ok {
		return nil, apperrors.ValidationField("type", fmt.Sprintf("no executor for job type %s", req.Type))
	}

	job, err := s.repo.Create(ctx, &model.Job{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		TaskID:  req.TaskID,
		Type:    req.Type,
		Payload: req.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.cacheSnapshot(ctx, job)

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"owner_id", job.OwnerID,
			"type", job.Type,
		)
	}

	return job, nil
}

// GetForOwner returns a job by ID, enforcing that the caller owns it.
func (s *JobService) GetForOwner(ctx context.Context, ownerID, id string) (*model.Job, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}
	// Reject non-UUID ids before they reach the uuid column; a garbage id is
	// indistinguishable from an unknown one.
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	job, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, model.ErrJobNotFound) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}

	if job.OwnerID != ownerID {
		return nil, apperrors.Forbidden("access denied")
	}
	return job, nil
}

// ListForOwner returns the owner's jobs, newest first.
func (s *JobService) ListForOwner(
	ctx context.Context,
	ownerID string,
	opts *model.JobListOptions,
) ([]*model.Job, error) {
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}

	normalized := model.JobListOptions{}
	if opts != nil {
		normalized = *opts
	}
	if normalized.TaskID != nil && *normalized.TaskID != "" {
		if _, err := uuid.Parse(*normalized.TaskID); err != nil {
			return nil, apperrors.ValidationField("task_id", "task id must be a valid UUID")
		}
	}
	p := normalizePagination(normalized.Limit, normalized.Offset)
	normalized.Limit = p.Limit
	normalized.Offset = p.Offset

	jobs, err := s.repo.ListByOwner(ctx, ownerID, &normalized)
	if err != nil {
		return nil, fmt.Errorf("list jobs for owner: %w", err)
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	return jobs, nil
}

// ProcessPending claims and executes up to batchSize pending jobs. A job
// already claimed by a concurrent worker is skipped; a job whose executor
// fails or panics is marked failed. Neither aborts the rest of the batch.
// Returns the number of jobs this call drove to a terminal status.
func (s *JobService) ProcessPending(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	pending, err := s.repo.ListPending(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending jobs: %w", err)
	}

	processed := 0
	for _, job := range pending {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if s.processOne(ctx, job.ID) {
			processed++
		}
	}
	return processed, nil
}

// processOne claims a single job, runs its executor, and records the
// terminal state. Returns true when the job reached a terminal status.
func (s *JobService) processOne(ctx context.Context, id string) bool {
	claimed, err := s.repo.Claim(ctx, id)
	if err != nil {
		// Lost the claim race or the job disappeared; either way it is no
		// longer ours to run.
		if errors.Is(err, model.ErrJobNotClaimable) || errors.Is(err, model.ErrJobNotFound) {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "skipping job, claim not won", "id", id)
			}
			return false
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "claim job failed", "id", id, "error", err)
		}
		return false
	}

	s.publishState(claimed)
	s.cacheSnapshot(ctx, claimed)
	s.emitTransition(claimed.Type, "claim", metrics.ResultSuccess, 0, nil)

	started := time.Now()
	result, execErr := s.execute(ctx, claimed)
	elapsed := time.Since(started)

	var terminal *model.Job
	if execErr != nil {
		terminal, err = s.repo.Fail(ctx, claimed.ID, execErr.Error())
		s.emitTransition(claimed.Type, "execute", metrics.ResultError, elapsed, execErr)
	} else {
		terminal, err = s.repo.Complete(ctx, claimed.ID, result)
		s.emitTransition(claimed.Type, "execute", metrics.ResultSuccess, elapsed, nil)
	}

	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "record terminal job state failed",
				"id", claimed.ID,
				"error", err,
			)
		}
		return false
	}

	s.publishState(terminal)
	s.cacheSnapshot(ctx, terminal)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job finished",
			"id", terminal.ID,
			"type", terminal.Type,
			"status", terminal.Status,
			"duration", elapsed,
		)
	}
	return true
}

// execute runs the job's executor, converting a panic into an error so a
// misbehaving executor cannot take the worker down.
func (s *JobService) execute(ctx context.Context, job *model.Job) (result string, err error) {
	executor, ok := s.executors[job.Type]
	if !ok {
		return "", fmt.Errorf("no executor for job type %s", job.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "executor panicked",
					"id", job.ID,
					"type", job.Type,
					"panic", r,
				)
			}
		}
	}()

	return executor.Execute(ctx, job)
}

// publishState broadcasts the job's current state to the owner's clients.
func (s *JobService) publishState(job *model.Job) {
	if s.publisher == nil || job == nil {
		return
	}
	s.publisher.Send(job.OwnerID, model.NewJobEvent(job))
}

// cacheSnapshot stores the job's latest state for polling clients. Cache
// failures are logged and swallowed; the database remains the source of truth.
func (s *JobService) cacheSnapshot(ctx context.Context, job *model.Job) {
	if s.cache == nil || job == nil {
		return
	}

	raw, err := json.Marshal(job)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "marshal job snapshot failed", "id", job.ID, "error", err)
		}
		return
	}
	if err := s.cache.Set(ctx, data.JobSnapshotKey(job.ID), raw, s.snapshotTTL); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "cache job snapshot failed", "id", job.ID, "error", err)
		}
	}
}

func (s *JobService) emitTransition(
	jobType model.JobType,
	transition, result string,
	duration time.Duration,
	err error,
) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(jobType),
		Transition: transition,
		Result:     result,
		Duration:   duration,
		Err:        err,
	})
}

// paginationParams holds normalized pagination parameters.
type paginationParams struct {
	Limit  int
	Offset int
}

// normalizePagination clamps pagination parameters to safe defaults.
// Default limit: 50, max limit: 1000, min offset: 0.
func normalizePagination(limit, offset int) paginationParams {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return paginationParams{Limit: limit, Offset: offset}
}
