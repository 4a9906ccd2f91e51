package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *countingProcessor) ProcessPending(_ context.Context, _ int) (int, error) {
	p.calls.Add(1)
	if p.err != nil {
		return 0, p.err
	}
	return 1, nil
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	assert.ErrorContains(t, err, "pending processor is required")
}

func TestNewRunner_Defaults(t *testing.T) {
	r, err := NewRunner(RunnerOptions{Processor: &countingProcessor{}})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, r.interval)
	assert.Equal(t, 10, r.batchSize)
}

func TestRunner_RunTicksUntilCancelled(t *testing.T) {
	proc := &countingProcessor{}
	r, err := NewRunner(RunnerOptions{
		Processor: proc,
		Interval:  5 * time.Millisecond,
		BatchSize: 3,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return proc.calls.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunner_KeepsRunningAfterTickError(t *testing.T) {
	proc := &countingProcessor{err: errors.New("db down")}
	r, err := NewRunner(RunnerOptions{
		Processor: proc,
		Interval:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return proc.calls.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRunner_ReturnsDeadlineError(t *testing.T) {
	proc := &countingProcessor{}
	r, err := NewRunner(RunnerOptions{Processor: proc, Interval: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Run(ctx), context.DeadlineExceeded)
}
