package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskspring/taskspring-api/internal/domain/model"
	"github.com/taskspring/taskspring-api/internal/testutil"
)

// Task references live in a uuid column, so fixtures need real uuids.
const (
	taskRefA = "550e8400-e29b-41d4-a716-446655440000"
	taskRefB = "67e55044-10b1-426f-9247-bb680e5fe0c8"
)

func newTestRepo(db *sql.DB) *JobRepo {
	return NewJobRepo(db, RepoConfig{Logger: slog.New(slog.DiscardHandler)})
}

func createTestJob(t *testing.T, repo *JobRepo, ownerID string, taskID *string) *model.Job {
	t.Helper()

	job, err := repo.Create(context.Background(), &model.Job{
		OwnerID: ownerID,
		TaskID:  taskID,
		Type:    model.JobTypeResearch,
		Payload: json.RawMessage(`{"query":"test"}`),
	})
	require.NoError(t, err)
	return job
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		created := createTestJob(t, repo, "owner-1", testutil.StringPtr(taskRefA))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, model.JobStatusPending, created.Status)
		assert.Nil(t, created.Result)
		assert.Nil(t, created.Error)
		assert.Nil(t, created.StartedAt)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "owner-1", got.OwnerID)
		require.NotNil(t, got.TaskID)
		assert.Equal(t, taskRefA, *got.TaskID)
		assert.JSONEq(t, `{"query":"test"}`, string(got.Payload))
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)

		_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, model.ErrJobNotFound)
	})
}

func TestJobRepo_ClaimLifecycle(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		created := createTestJob(t, repo, "owner-1", nil)

		claimed, err := repo.Claim(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusProcessing, claimed.Status)
		require.NotNil(t, claimed.StartedAt)

		// A second claim must lose the status predicate.
		_, err = repo.Claim(ctx, created.ID)
		assert.ErrorIs(t, err, model.ErrJobNotClaimable)

		completed, err := repo.Complete(ctx, created.ID, `{"answer":42}`)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, completed.Status)
		require.NotNil(t, completed.Result)
		assert.JSONEq(t, `{"answer":42}`, *completed.Result)
		assert.Nil(t, completed.Error)
		require.NotNil(t, completed.CompletedAt)
	})
}

func TestJobRepo_Fail(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		created := createTestJob(t, repo, "owner-1", nil)

		_, err := repo.Claim(ctx, created.ID)
		require.NoError(t, err)

		failed, err := repo.Fail(ctx, created.ID, "upstream timed out")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusError, failed.Status)
		require.NotNil(t, failed.Error)
		assert.Equal(t, "upstream timed out", *failed.Error)
		assert.Nil(t, failed.Result)

		// Terminal jobs reject further transitions.
		_, err = repo.Complete(ctx, created.ID, `{}`)
		assert.ErrorIs(t, err, model.ErrJobNotClaimable)
	})
}

func TestJobRepo_Claim_Concurrent(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		created := createTestJob(t, repo, "owner-1", nil)

		var wins atomic.Int32
		claim := func() error {
			_, err := repo.Claim(ctx, created.ID)
			if err == nil {
				wins.Add(1)
				return nil
			}
			if errors.Is(err, model.ErrJobNotClaimable) {
				return nil
			}
			return err
		}

		runner := testutil.NewConcurrentTestRunner(t, db)
		for _, err := range runner.RunConcurrent(claim, claim, claim, claim, claim) {
			require.NoError(t, err)
		}

		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestJobRepo_ListPending(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		first := createTestJob(t, repo, "owner-1", nil)
		second := createTestJob(t, repo, "owner-2", nil)

		_, err := repo.Claim(ctx, second.ID)
		require.NoError(t, err)

		pending, err := repo.ListPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)

		none, err := repo.ListPending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestJobRepo_ListByOwner(t *testing.T) {
	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := newTestRepo(db)
		ctx := context.Background()

		createTestJob(t, repo, "owner-1", testutil.StringPtr(taskRefA))
		createTestJob(t, repo, "owner-1", testutil.StringPtr(taskRefB))
		createTestJob(t, repo, "owner-2", testutil.StringPtr(taskRefA))

		all, err := repo.ListByOwner(ctx, "owner-1", nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		for _, job := range all {
			assert.Equal(t, "owner-1", job.OwnerID)
		}

		filtered, err := repo.ListByOwner(ctx, "owner-1", &model.JobListOptions{
			TaskID: testutil.StringPtr(taskRefA),
		})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		require.NotNil(t, filtered[0].TaskID)
		assert.Equal(t, taskRefA, *filtered[0].TaskID)

		paged, err := repo.ListByOwner(ctx, "owner-1", &model.JobListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, paged, 1)
	})
}
