package tests

import (
	"context"
	"testing"
	"time"

	"charter/internal/domain"
	"charter/internal/jobs"
)

// ──────────────────────────────────────────────
// 10. SCHEDULE BACKFILL
// ──────────────────────────────────────────────

func TestBackfill_ReseedsExpiryFromQuotedAt(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()

	quotedAt := time.Now().Add(-2 * time.Hour)
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:               "quote-1",
		Status:           domain.QuoteStatusQuoted,
		Stops:            dayStops(futureDayStart(), 2),
		VehicleIDs:       []string{"v-1"},
		AssignedDriverID: "driver-1",
		QuotedAt:         quotedAt,
	})
	// Draft quotes carry no deadline.
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:     "quote-2",
		Status: domain.QuoteStatusDraft,
		Stops:  dayStops(futureDayStart(), 2),
	})

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := env.store.Live(jobs.KindQuoteExpiry, "quote-1")
	if job == nil {
		t.Fatal("expected a live expiry job for the quoted quote")
	}
	if !job.FireAt.Equal(quotedAt.Add(env.cfg.PaymentWindow)) {
		t.Errorf("expected expiry derived from QuotedAt, got %v", job.FireAt)
	}
	if env.store.Live(jobs.KindQuoteExpiry, "quote-2") != nil {
		t.Error("expected no expiry job for a draft quote")
	}
}

func TestBackfill_OverduePaymentWindowFiresImmediately(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	before := time.Now()

	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-1",
		Status:     domain.QuoteStatusQuoted,
		Stops:      dayStops(futureDayStart(), 2),
		VehicleIDs: []string{"v-1"},
		QuotedAt:   time.Now().Add(-72 * time.Hour),
	})

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := env.store.Live(jobs.KindQuoteExpiry, "quote-1")
	if job == nil {
		t.Fatal("expected a live expiry job")
	}
	if job.FireAt.Before(before) {
		t.Errorf("expected an overdue deadline clamped to now, got %v", job.FireAt)
	}
}

func TestBackfill_ReseedsAutoCompleteForInFlightTrips(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()

	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-1",
		Status:     domain.QuoteStatusPaid,
		Stops:      dayStops(futureDayStart(), 3),
		VehicleIDs: []string{"v-1"},
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               "res-1",
		QuoteID:          "quote-1",
		AssignedDriverID: "driver-1",
		Status:           domain.ReservationStatusConfirmed,
		StartedAt:        time.Now(),
	})
	// Confirmed but not started: nothing to auto-complete yet.
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-2",
		Status:     domain.QuoteStatusPaid,
		Stops:      dayStops(futureDayStart().AddDate(0, 0, 2), 3),
		VehicleIDs: []string{"v-1"},
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:      "res-2",
		QuoteID: "quote-2",
		Status:  domain.ReservationStatusConfirmed,
	})

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := env.store.Live(jobs.KindTripAutoComplete, "res-1")
	if job == nil {
		t.Fatal("expected a live auto-complete job for the in-flight trip")
	}
	_, end := env.quoteRepo.GetQuote("quote-1").Window()
	if !job.FireAt.Equal(end.Add(env.cfg.GracePeriod)) {
		t.Errorf("expected fire time at itinerary end plus grace, got %v", job.FireAt)
	}
	if env.store.Live(jobs.KindTripAutoComplete, "res-2") != nil {
		t.Error("expected no auto-complete job for an unstarted trip")
	}
}

func TestBackfill_ReseedsCooldownForDriversParkedBetweenTrips(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()

	// driver-1 finished a trip two hours ago; their cooldown job was
	// lost with the queue. Without the reseed they stay ON_TRIP forever.
	parked := availableDriver("driver-1", 500, time.Time{})
	parked.Status = domain.DriverStatusOnTrip
	env.driverRepo.AddDriver(parked)
	completedAt := time.Now().Add(-2 * time.Hour)
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               "res-done",
		QuoteID:          "quote-done",
		AssignedDriverID: "driver-1",
		Status:           domain.ReservationStatusCompleted,
		StartedAt:        completedAt.Add(-3 * time.Hour),
		CompletedAt:      completedAt,
	})

	// driver-2 is mid-trip; the auto-complete job owns them.
	driving := availableDriver("driver-2", 500, time.Time{})
	driving.Status = domain.DriverStatusOnTrip
	env.driverRepo.AddDriver(driving)
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-live",
		Status:     domain.QuoteStatusPaid,
		Stops:      dayStops(futureDayStart(), 3),
		VehicleIDs: []string{"v-1"},
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               "res-live",
		QuoteID:          "quote-live",
		AssignedDriverID: "driver-2",
		Status:           domain.ReservationStatusConfirmed,
		StartedAt:        time.Now(),
	})

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := env.store.Live(jobs.KindDriverCooldown, "driver-1")
	if job == nil {
		t.Fatal("expected a live cooldown job for the parked driver")
	}
	if !job.FireAt.Equal(completedAt.Add(env.cfg.Cooldown)) {
		t.Errorf("expected cooldown at completion plus hold, got %v", job.FireAt)
	}

	if env.store.Live(jobs.KindDriverCooldown, "driver-2") != nil {
		t.Error("expected no cooldown for a driver with a trip in progress")
	}
}

func TestBackfill_OverdueCooldownFiresImmediately(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	before := time.Now()

	parked := availableDriver("driver-1", 500, time.Time{})
	parked.Status = domain.DriverStatusOnTrip
	env.driverRepo.AddDriver(parked)
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               "res-done",
		QuoteID:          "quote-done",
		AssignedDriverID: "driver-1",
		Status:           domain.ReservationStatusCompleted,
		StartedAt:        time.Now().Add(-50 * time.Hour),
		CompletedAt:      time.Now().Add(-48 * time.Hour),
	})

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job := env.store.Live(jobs.KindDriverCooldown, "driver-1")
	if job == nil {
		t.Fatal("expected a live cooldown job")
	}
	if job.FireAt.Before(before) {
		t.Errorf("expected an elapsed hold clamped to now, got %v", job.FireAt)
	}
}

func TestBackfill_SeedsSinglePendingSweep(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()

	if err := env.backfill.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.store.Live(jobs.KindProcessPendingQuotes, jobs.GlobalCorrelationID) == nil {
		t.Fatal("expected the recurring sweep seeded")
	}
}

func TestBackfill_RunIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()

	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-1",
		Status:     domain.QuoteStatusQuoted,
		Stops:      dayStops(futureDayStart(), 2),
		VehicleIDs: []string{"v-1"},
		QuotedAt:   time.Now(),
	})
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:         "quote-2",
		Status:     domain.QuoteStatusPaid,
		Stops:      dayStops(futureDayStart(), 3),
		VehicleIDs: []string{"v-1"},
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:        "res-1",
		QuoteID:   "quote-2",
		Status:    domain.ReservationStatusConfirmed,
		StartedAt: time.Now(),
	})

	if err := env.backfill.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	count := len(env.store.Snapshot())
	if count != 3 {
		t.Fatalf("expected 3 seeded jobs, got %d", count)
	}

	if err := env.backfill.Run(ctx); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if got := len(env.store.Snapshot()); got != count {
		t.Errorf("expected no duplicates on rerun, got %d jobs", got)
	}
}
