// Package worker provides the adapter that drives the job service's pending
// queue on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	obserrors "github.com/taskspring/taskspring-api/internal/observability/errors"
	"github.com/taskspring/taskspring-api/internal/observability/metrics"
	"github.com/taskspring/taskspring-api/internal/observability/statsd"
)

// PendingProcessor claims and executes a batch of pending jobs.
// *service.JobService satisfies it.
type PendingProcessor interface {
	ProcessPending(ctx context.Context, batchSize int) (int, error)
}

// Runner polls for pending jobs at a fixed interval until its context is
// cancelled.
type Runner struct {
	processor PendingProcessor
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   statsd.Sink
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Processor PendingProcessor
	Interval  time.Duration // Optional: defaults to 5s
	BatchSize int           // Optional: defaults to 10
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// NewRunner creates a new worker runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Processor == nil {
		return nil, errors.New("pending processor is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		processor: opts.Processor,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("component", "worker"),
		metrics:   opts.Metrics,
	}, nil
}

// Run starts the worker loop and runs until the context is cancelled.
// Tick errors are logged and the loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting worker",
		"interval", r.interval,
		"batch_size", r.batchSize,
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "worker stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			start := time.Now()
			processed, err := r.processor.ProcessPending(ctx, r.batchSize)
			elapsed := time.Since(start)

			r.emitTickMetrics(processed, elapsed, err)

			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				r.logger.ErrorContext(ctx, "worker tick failed", "error", err)
			} else if processed > 0 {
				r.logger.InfoContext(ctx, "worker tick finished",
					"processed", processed,
					"duration", elapsed,
				)
			}
		}
	}
}

func (r *Runner) emitTickMetrics(processed int, elapsed time.Duration, err error) {
	if r.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if processed == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	r.metrics.Count("worker.tick", 1, tags)
	if processed > 0 {
		r.metrics.Count("worker.jobs_processed", int64(processed), tags)
	}
	if elapsed > 0 {
		r.metrics.Timing("worker.tick_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		r.metrics.Gauge("worker.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}
