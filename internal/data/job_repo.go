// Package data provides the PostgreSQL and Redis backed repository
// implementations for the job system.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskspring/taskspring-api/internal/core"
	apperrors "github.com/taskspring/taskspring-api/internal/errors"
	"github.com/taskspring/taskspring-api/internal/domain/model"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider core.TimeProvider
}

// JobRepo provides database operations for job management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider core.TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  owner_id,
  task_id,
  type,
  status,
  payload,
  result,
  error,
  started_at,
  completed_at,
  created_at,
  updated_at
`

// Create inserts a new pending job and returns the stored row.
// Missing IDs and timestamps are filled in before the insert.
func (r *JobRepo) Create(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if job.OwnerID == "" {
		return nil, errors.New("owner id is required")
	}
	if !job.Type.Valid() {
		return nil, fmt.Errorf("invalid job type: %s", job.Type)
	}

	id := job.ID
	if id == "" {
		id = uuid.NewString()
	}
	payload := job.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO jobs (id, owner_id, task_id, type, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $6)
		RETURNING `+jobColumns, id, job.OwnerID, job.TaskID, job.Type, []byte(payload), now)

	created, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
	}
	return created, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// ListPending returns up to limit pending jobs, oldest first.
func (r *JobRepo) ListPending(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", apperrors.MapDBError(err))
	}
	defer closeRows(rows, r.logger, "list pending jobs")

	return collectJobs(rows)
}

// ListByOwner returns the owner's jobs, newest first, with optional task
// filtering and pagination.
func (r *JobRepo) ListByOwner(
	ctx context.Context,
	ownerID string,
	opts *model.JobListOptions,
) ([]*model.Job, error) {
	if ownerID == "" {
		return nil, errors.New("owner id is required")
	}

	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE owner_id = $1`
	args := []any{ownerID}

	if opts != nil && opts.TaskID != nil && *opts.TaskID != "" {
		args = append(args, *opts.TaskID)
		query += fmt.Sprintf(" AND task_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit, offset := 50, 0
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if opts.Offset > 0 {
			offset = opts.Offset
		}
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs by owner: %w", apperrors.MapDBError(err))
	}
	defer closeRows(rows, r.logger, "list jobs by owner")

	return collectJobs(rows)
}

// Claim transitions a pending job to processing. The status predicate makes
// the claim atomic: of any number of concurrent claimers exactly one gets the
// row back, the rest get model.ErrJobNotClaimable.
func (r *JobRepo) Claim(ctx context.Context, id string) (*model.Job, error) {
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'processing',
		    started_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING `+jobColumns, id, now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMissedTransition(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Complete transitions a processing job to completed and records its result.
func (r *JobRepo) Complete(ctx context.Context, id, result string) (*model.Job, error) {
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    result = $2,
		    error = NULL,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
		RETURNING `+jobColumns, id, result, now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMissedTransition(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("complete job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Fail transitions a processing job to error and records the failure message.
func (r *JobRepo) Fail(ctx context.Context, id, errMsg string) (*model.Job, error) {
	now := r.timeProvider.Now().UTC()

	row := r.DB.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = 'error',
		    error = $2,
		    result = NULL,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
		RETURNING `+jobColumns, id, errMsg, now)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainMissedTransition(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fail job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// explainMissedTransition distinguishes "job gone" from "job in another
// status" after a conditional update matched zero rows.
func (r *JobRepo) explainMissedTransition(ctx context.Context, id string) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("re-check job after missed transition: %w", apperrors.MapDBError(err))
	}
	if !exists {
		return model.ErrJobNotFound
	}
	return model.ErrJobNotClaimable
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var (
		taskID, result, errMsg sql.NullString
		payload                []byte
		startedAt, completedAt sql.NullTime
	)

	if err := scanner.Scan(
		&job.ID,
		&job.OwnerID,
		&taskID,
		&job.Type,
		&job.Status,
		&payload,
		&result,
		&errMsg,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Payload = cloneJSON(payload)
	job.TaskID = cloneNullableString(taskID)
	job.Result = cloneNullableString(result)
	job.Error = cloneNullableString(errMsg)
	job.StartedAt = cloneNullableTime(startedAt)
	job.CompletedAt = cloneNullableTime(completedAt)
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*model.Job, error) {
	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func closeRows(rows *sql.Rows, logger *slog.Logger, op string) {
	if err := rows.Close(); err != nil && logger != nil {
		logger.Warn("close rows failed", "op", op, "error", err)
	}
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
