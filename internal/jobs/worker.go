package jobs

import (
	"context"
	"log/slog"
	"time"

	"charter/internal/observability"
)

// HandlerFunc executes one delivered job. Returning nil marks the job
// done; this includes intentional no-ops from idempotent guards, which
// must not be retried. Returning an error reschedules the job until its
// attempts run out.
type HandlerFunc func(ctx context.Context, job *Job) error

type registration struct {
	handler  HandlerFunc
	interval time.Duration // > 0 for recurring kinds
}

// Worker polls the store and executes due jobs, one poll loop per
// registered kind. Multiple Worker processes can run against the same
// Postgres store; the claim statement keeps them from double-delivering
// inside a lease.
type Worker struct {
	store        Store
	log          *slog.Logger
	pollInterval time.Duration
	lease        time.Duration
	maxAttempts  int
	retryBase    time.Duration
	handlers     map[Kind]registration
	now          func() time.Time
}

// WorkerOptions tunes a Worker. Zero values get sensible defaults.
type WorkerOptions struct {
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	RetryBase    time.Duration
}

// NewWorker creates a worker over the given store.
func NewWorker(store Store, log *slog.Logger, opts WorkerOptions) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 30 * time.Second
	}
	return &Worker{
		store:        store,
		log:          log,
		pollInterval: opts.PollInterval,
		lease:        opts.Lease,
		maxAttempts:  opts.MaxAttempts,
		retryBase:    opts.RetryBase,
		handlers:     make(map[Kind]registration),
		now:          time.Now,
	}
}

// Register binds a handler to a job kind.
func (w *Worker) Register(kind Kind, handler HandlerFunc) {
	w.handlers[kind] = registration{handler: handler}
}

// RegisterRecurring binds a handler to a kind that re-enqueues itself:
// after each successful run the worker schedules the next occurrence
// with the same correlation id, interval from now.
func (w *Worker) RegisterRecurring(kind Kind, interval time.Duration, handler HandlerFunc) {
	w.handlers[kind] = registration{handler: handler, interval: interval}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error("job poll failed", "error", err)
			}
		}
	}
}

// RunOnce drains every due job across all registered kinds and returns
// how many were executed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	executed := 0
	for kind := range w.handlers {
		for {
			n, err := w.claimAndExecute(ctx, kind)
			if err != nil {
				return executed, err
			}
			if n == 0 {
				break
			}
			executed += n
		}
	}
	return executed, nil
}

func (w *Worker) claimAndExecute(ctx context.Context, kind Kind) (int, error) {
	now := w.now()
	job, err := w.store.Claim(ctx, kind, now, now.Add(w.lease))
	if err != nil {
		if err == ErrNoJob {
			return 0, nil
		}
		return 0, err
	}

	reg := w.handlers[kind]
	start := w.now()
	handlerErr := reg.handler(ctx, job)
	observability.JobDuration.WithLabelValues(string(kind)).Observe(w.now().Sub(start).Seconds())
	observability.JobsFired.WithLabelValues(string(kind)).Inc()

	if handlerErr != nil {
		if job.Attempts >= w.maxAttempts {
			w.log.Error("job failed permanently",
				"kind", kind, "correlation_id", job.CorrelationID, "attempts", job.Attempts, "error", handlerErr)
			if err := w.store.MarkFailed(ctx, job.ID); err != nil {
				return 1, err
			}
			return 1, nil
		}

		retryAt := w.now().Add(w.backoff(job.Attempts))
		w.log.Warn("job failed, will retry",
			"kind", kind, "correlation_id", job.CorrelationID, "attempts", job.Attempts, "retry_at", retryAt, "error", handlerErr)
		observability.JobsRetried.WithLabelValues(string(kind)).Inc()
		if err := w.store.MarkRetry(ctx, job.ID, retryAt); err != nil {
			return 1, err
		}
		return 1, nil
	}

	if err := w.store.MarkDone(ctx, job.ID); err != nil {
		return 1, err
	}

	if reg.interval > 0 {
		next := w.now().Add(reg.interval)
		if _, err := w.store.Enqueue(ctx, kind, job.CorrelationID, next, Payload{}); err != nil && err != ErrDuplicateJob {
			w.log.Error("failed to reschedule recurring job", "kind", kind, "error", err)
		}
	}
	return 1, nil
}

// backoff doubles from retryBase per prior attempt, capped at 30 minutes.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.retryBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}
