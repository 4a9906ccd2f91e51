// Package core defines the contracts between the service layer and its
// adapters (ports in hexagonal architecture). Service implementations depend
// on these interfaces, not concrete implementations.
package core

import (
	"context"
	"time"

	"github.com/taskspring/taskspring-api/internal/domain/model"
)

// JobRepository defines the interface for job data operations.
//
// Claim, Complete, and Fail are conditional transitions: each succeeds only
// when the job is still in the expected pre-transition status, and returns
// model.ErrJobNotClaimable otherwise. This is what keeps concurrent workers
// from executing the same job twice.
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ListPending(ctx context.Context, limit int) ([]*model.Job, error)
	ListByOwner(ctx context.Context, ownerID string, opts *model.JobListOptions) ([]*model.Job, error)
	Claim(ctx context.Context, id string) (*model.Job, error)
	Complete(ctx context.Context, id, result string) (*model.Job, error)
	Fail(ctx context.Context, id, errMsg string) (*model.Job, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// Executor runs a claimed job to completion and returns its result string.
// A returned error marks the job failed; the error message is recorded on
// the job verbatim.
type Executor interface {
	Execute(ctx context.Context, job *model.Job) (string, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job *model.Job) (string, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, job *model.Job) (string, error) {
	return f(ctx, job)
}

// Publisher broadcasts a message to every connected client of an owner.
// Implementations must not block on slow or dead clients.
type Publisher interface {
	Send(ownerID string, message any)
}

// TimeProvider abstracts time for deterministic tests.
type TimeProvider interface {
	Now() time.Time
}
