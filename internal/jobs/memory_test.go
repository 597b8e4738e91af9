package jobs

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_EnqueueRejectsDuplicateLiveJob(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	fireAt := time.Now().Add(time.Hour)

	if _, err := store.Enqueue(ctx, KindQuoteExpiry, "quote-1", fireAt, Payload{QuoteID: "quote-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := store.Enqueue(ctx, KindQuoteExpiry, "quote-1", fireAt.Add(time.Hour), Payload{QuoteID: "quote-1"})
	if err != ErrDuplicateJob {
		t.Errorf("expected ErrDuplicateJob, got %v", err)
	}

	// A different kind with the same correlation id is fine.
	if _, err := store.Enqueue(ctx, KindAssignDriver, "quote-1", fireAt, Payload{QuoteID: "quote-1"}); err != nil {
		t.Errorf("unexpected error for different kind: %v", err)
	}
}

func TestMemoryStore_CancelThenEnqueueReschedules(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	first := time.Now().Add(time.Hour)
	second := time.Now().Add(2 * time.Hour)

	if _, err := store.Enqueue(ctx, KindQuoteExpiry, "quote-1", first, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Cancel(ctx, KindQuoteExpiry, "quote-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Enqueue(ctx, KindQuoteExpiry, "quote-1", second, Payload{}); err != nil {
		t.Fatalf("expected re-enqueue after cancel to succeed, got %v", err)
	}

	live := store.Live(KindQuoteExpiry, "quote-1")
	if live == nil {
		t.Fatal("expected a live job after re-enqueue")
	}
	if !live.FireAt.Equal(second) {
		t.Errorf("expected fire time %v, got %v", second, live.FireAt)
	}
}

func TestMemoryStore_CancelMissingJobIsNoError(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Cancel(context.Background(), KindDriverCooldown, "nope"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMemoryStore_ClaimHonorsFireTime(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if _, err := store.Enqueue(ctx, KindTripAutoComplete, "res-1", now.Add(time.Hour), Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Claim(ctx, KindTripAutoComplete, now, now.Add(time.Minute)); err != ErrNoJob {
		t.Errorf("expected ErrNoJob before fire time, got %v", err)
	}

	job, err := store.Claim(ctx, KindTripAutoComplete, now.Add(2*time.Hour), now.Add(2*time.Hour).Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Attempts != 1 {
		t.Errorf("expected attempts 1, got %d", job.Attempts)
	}
	if job.Status != StatusRunning {
		t.Errorf("expected RUNNING, got %s", job.Status)
	}
}

func TestMemoryStore_ExpiredLeaseIsClaimableAgain(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if _, err := store.Enqueue(ctx, KindTripAutoComplete, "res-1", now, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := store.Claim(ctx, KindTripAutoComplete, now, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Inside the lease the job is invisible.
	if _, err := store.Claim(ctx, KindTripAutoComplete, now.Add(30*time.Second), now.Add(90*time.Second)); err != ErrNoJob {
		t.Errorf("expected ErrNoJob inside lease, got %v", err)
	}

	// After the lease expires the same job is delivered again.
	second, err := store.Claim(ctx, KindTripAutoComplete, now.Add(2*time.Minute), now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected redelivery of job %s, got %s", first.ID, second.ID)
	}
	if second.Attempts != 2 {
		t.Errorf("expected attempts 2 on redelivery, got %d", second.Attempts)
	}
}
