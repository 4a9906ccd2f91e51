// Package mocks provides mock implementations for testing the taskspring job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Create, GetByID, ListPending, ListByOwner, Claim, Complete, Fail
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/taskspring/taskspring-api/internal/core JobRepository

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/taskspring/taskspring-api/internal/core CacheRepository

// Generate mock for Executor interface from internal/core package.
// This creates MockExecutor with the Execute method.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=executor_mock.go github.com/taskspring/taskspring-api/internal/core Executor

// Generate mock for Publisher interface from internal/core package.
// This creates MockPublisher with the Send method.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=publisher_mock.go github.com/taskspring/taskspring-api/internal/core Publisher
