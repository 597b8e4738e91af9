package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_ExecutesDueJob(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	worker := NewWorker(store, testLogger(), WorkerOptions{})
	ctx := context.Background()

	var got Payload
	worker.Register(KindQuoteExpiry, func(ctx context.Context, job *Job) error {
		var err error
		got, err = job.DecodePayload()
		return err
	})

	if _, err := store.Enqueue(ctx, KindQuoteExpiry, "quote-1", time.Now().Add(-time.Second), Payload{QuoteID: "quote-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 job executed, got %d", n)
	}
	if got.QuoteID != "quote-1" {
		t.Errorf("expected payload quote-1, got %q", got.QuoteID)
	}
	if live := store.Live(KindQuoteExpiry, "quote-1"); live != nil {
		t.Errorf("expected job to be terminal, found live job in status %s", live.Status)
	}
}

func TestWorker_NoOpHandlerIsNotRetried(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	worker := NewWorker(store, testLogger(), WorkerOptions{})
	ctx := context.Background()

	calls := 0
	worker.Register(KindTripAutoComplete, func(ctx context.Context, job *Job) error {
		calls++
		return nil // idempotent guard fired, nothing to do
	})

	if _, err := store.Enqueue(ctx, KindTripAutoComplete, "res-1", time.Now().Add(-time.Second), Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 handler call, got %d", calls)
	}
}

func TestWorker_FailingHandlerIsRetriedThenFailed(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	worker := NewWorker(store, testLogger(), WorkerOptions{MaxAttempts: 3, RetryBase: time.Minute})
	ctx := context.Background()

	clock := time.Now()
	worker.now = func() time.Time { return clock }

	calls := 0
	worker.Register(KindAssignDriver, func(ctx context.Context, job *Job) error {
		calls++
		return errors.New("boom")
	})

	if _, err := store.Enqueue(ctx, KindAssignDriver, "quote-1", clock.Add(-time.Second), Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Each pass advances past the backoff so the retry is due again.
	for i := 0; i < 5; i++ {
		if _, err := worker.RunOnce(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		clock = clock.Add(time.Hour)
	}

	if calls != 3 {
		t.Errorf("expected 3 attempts before permanent failure, got %d", calls)
	}

	jobs := store.Snapshot()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", jobs[0].Status)
	}
}

func TestWorker_RecurringJobReschedulesItself(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	worker := NewWorker(store, testLogger(), WorkerOptions{})
	ctx := context.Background()

	clock := time.Now()
	worker.now = func() time.Time { return clock }

	worker.RegisterRecurring(KindProcessPendingQuotes, 10*time.Minute, func(ctx context.Context, job *Job) error {
		return nil
	})

	if _, err := store.Enqueue(ctx, KindProcessPendingQuotes, "global", clock.Add(-time.Second), Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := store.Live(KindProcessPendingQuotes, "global")
	if next == nil {
		t.Fatal("expected a rescheduled occurrence")
	}
	if want := clock.Add(10 * time.Minute); !next.FireAt.Equal(want) {
		t.Errorf("expected next fire at %v, got %v", want, next.FireAt)
	}
}

func TestWorker_CancelledJobIsNotDelivered(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	worker := NewWorker(store, testLogger(), WorkerOptions{})
	ctx := context.Background()

	calls := 0
	worker.Register(KindDriverCooldown, func(ctx context.Context, job *Job) error {
		calls++
		return nil
	})

	if _, err := store.Enqueue(ctx, KindDriverCooldown, "driver-1", time.Now().Add(-time.Second), Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Cancel(ctx, KindDriverCooldown, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no handler calls for cancelled job, got %d", calls)
	}
}
