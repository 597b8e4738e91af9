package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"charter/internal/domain"
	"charter/internal/jobs"
	"charter/internal/notify"
	"charter/internal/repository"
	"charter/internal/service"
)

// ──────────────────────────────────────────────
// 4. TRIP LIFECYCLE
// ──────────────────────────────────────────────

// seedPaidTrip stores a paid quote and its confirmed reservation.
func seedPaidTrip(env *lifecycleEnv, quoteID, reservationID, driverID string, stops []domain.Stop) {
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:               quoteID,
		RequesterID:      "requester-1",
		Status:           domain.QuoteStatusPaid,
		Stops:            stops,
		VehicleIDs:       []string{"v-1"},
		AssignedDriverID: driverID,
		ActualDriverRate: 500,
		Pricing:          domain.PricingBreakdown{DriverCharge: 1500, Total: 1760},
		QuotedAt:         time.Now().Add(-time.Hour),
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               reservationID,
		QuoteID:          quoteID,
		AssignedDriverID: driverID,
		Status:           domain.ReservationStatusConfirmed,
		CreatedAt:        time.Now().Add(-time.Hour),
	})
}

func TestTrip_StartSetsDriverOnTripAndSchedulesAutoComplete(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()

	driver := availableDriver("driver-1", 500, time.Time{})
	env.driverRepo.AddDriver(driver)
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	// A leftover cooldown from the previous trip.
	_, err := env.store.Enqueue(ctx, jobs.KindDriverCooldown, "driver-1",
		time.Now().Add(12*time.Hour), jobs.Payload{DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.trips.StartTrip(ctx, "res-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}
	if env.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnTrip {
		t.Error("expected driver ON_TRIP")
	}

	if env.store.Live(jobs.KindDriverCooldown, "driver-1") != nil {
		t.Error("expected stale cooldown cancelled on trip start")
	}

	job := env.store.Live(jobs.KindTripAutoComplete, "res-1")
	if job == nil {
		t.Fatal("expected a live auto-complete job")
	}
	_, end := env.quoteRepo.GetQuote("quote-1").Window()
	if !job.FireAt.Equal(end.Add(env.cfg.GracePeriod)) {
		t.Errorf("expected auto-complete at itinerary end plus grace, got %v", job.FireAt)
	}

	if env.notifier.Count(notify.EventTripStarted) != 1 {
		t.Errorf("expected one trip started event, got %d", env.notifier.Count(notify.EventTripStarted))
	}
}

func TestTrip_StartByWrongDriverLooksLikeNotFound(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	env.driverRepo.AddDriver(availableDriver("driver-2", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	_, err := env.trips.StartTrip(context.Background(), "res-1", "driver-2")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign reservation, got %v", err)
	}
}

func TestTrip_StartTwiceFails(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	if _, err := env.trips.StartTrip(ctx, "res-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := env.trips.StartTrip(ctx, "res-1", "driver-1")
	if !errors.Is(err, service.ErrTripAlreadyStarted) {
		t.Fatalf("expected ErrTripAlreadyStarted, got %v", err)
	}
}

func TestTrip_DriverCannotRunTwoTripsAtOnce(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))
	seedPaidTrip(env, "quote-2", "res-2", "driver-1", dayStops(futureDayStart().AddDate(0, 0, 2), 3))

	if _, err := env.trips.StartTrip(ctx, "res-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := env.trips.StartTrip(ctx, "res-2", "driver-1")
	if !errors.Is(err, service.ErrDriverHasActiveTrip) {
		t.Fatalf("expected ErrDriverHasActiveTrip, got %v", err)
	}
}

func TestTrip_EndCompletesAndCreditsEarnings(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	if _, err := env.trips.StartTrip(ctx, "res-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.trips.EndTrip(ctx, "res-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != domain.ReservationStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if got.CompletedAt.IsZero() {
		t.Error("expected CompletedAt set")
	}

	// The driver stays ON_TRIP until the cooldown job releases them.
	if env.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnTrip {
		t.Error("expected driver held ON_TRIP through cooldown")
	}
	if env.store.Live(jobs.KindDriverCooldown, "driver-1") == nil {
		t.Error("expected a live cooldown job")
	}
	if env.store.Live(jobs.KindTripAutoComplete, "res-1") != nil {
		t.Error("expected auto-complete cancelled on manual end")
	}

	// Earnings credited from the stored driver charge.
	if earned := env.driverRepo.GetDriver("driver-1").TotalEarnings; earned != 1500 {
		t.Errorf("expected earnings 1500, got %v", earned)
	}
	if env.locations.DeleteCallCount != 1 {
		t.Errorf("expected location record deleted, got %d deletes", env.locations.DeleteCallCount)
	}
	if env.notifier.Count(notify.EventTripCompleted) != 1 {
		t.Errorf("expected one completion event, got %d", env.notifier.Count(notify.EventTripCompleted))
	}
}

func TestTrip_EndBlockedByUnpaidCharges(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	if _, err := env.trips.StartTrip(ctx, "res-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env.chargeRepo.Unpaid = 150
	env.chargeRepo.Currency = "USD"

	_, err := env.trips.EndTrip(ctx, "res-1", "driver-1")
	var unpaid *service.UnpaidChargesError
	if !errors.As(err, &unpaid) {
		t.Fatalf("expected UnpaidChargesError, got %v", err)
	}
	if unpaid.Amount != 150 || unpaid.Currency != "USD" {
		t.Errorf("expected 150 USD unpaid, got %v %s", unpaid.Amount, unpaid.Currency)
	}

	// Trip stays open and its auto-complete schedule stands.
	if env.reservationRepo.GetReservation("res-1").Status != domain.ReservationStatusConfirmed {
		t.Error("expected reservation untouched")
	}
	if env.store.Live(jobs.KindTripAutoComplete, "res-1") == nil {
		t.Error("expected auto-complete schedule untouched")
	}
}

func TestTrip_EndBeforeStartFails(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	_, err := env.trips.EndTrip(context.Background(), "res-1", "driver-1")
	if !errors.Is(err, service.ErrTripNotStarted) {
		t.Fatalf("expected ErrTripNotStarted, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 5. AUTO-COMPLETE JOB
// ──────────────────────────────────────────────

func TestTrip_AutoCompleteClosesOverdueTrip(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))

	// Itinerary ended three hours ago; grace is one hour.
	past := time.Now().UTC().Add(-6 * time.Hour)
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(past, 3))
	res := env.reservationRepo.GetReservation("res-1")
	res.StartedAt = past

	if err := env.trips.HandleAutoComplete(ctx, jobs.Payload{ReservationID: "res-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := env.reservationRepo.GetReservation("res-1")
	if got.Status != domain.ReservationStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
	if env.store.Live(jobs.KindDriverCooldown, "driver-1") == nil {
		t.Error("expected cooldown scheduled")
	}
	if earned := env.driverRepo.GetDriver("driver-1").TotalEarnings; earned != 1500 {
		t.Errorf("expected earnings 1500, got %v", earned)
	}

	// Redelivery is a no-op and must not double the cooldown or pay.
	if err := env.trips.HandleAutoComplete(ctx, jobs.Payload{ReservationID: "res-1"}); err != nil {
		t.Fatalf("unexpected error on redelivery: %v", err)
	}
	if earned := env.driverRepo.GetDriver("driver-1").TotalEarnings; earned != 1500 {
		t.Errorf("expected earnings unchanged, got %v", earned)
	}
	if env.earningsRepo.CreateCallCount != 1 {
		t.Errorf("expected one earnings record, got %d", env.earningsRepo.CreateCallCount)
	}
}

func TestTrip_AutoCompleteBeforeGraceElapsesRetries(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))

	// Itinerary still in the future relative to grace.
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))
	res := env.reservationRepo.GetReservation("res-1")
	res.StartedAt = time.Now()

	err := env.trips.HandleAutoComplete(context.Background(), jobs.Payload{ReservationID: "res-1"})
	if err == nil {
		t.Fatal("expected an error to put the job back on the retry schedule")
	}
	if env.reservationRepo.GetReservation("res-1").Status != domain.ReservationStatusConfirmed {
		t.Error("expected reservation untouched")
	}
}

func TestTrip_AutoCompleteForUnstartedOrMissingTripIsNoOp(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	env.driverRepo.AddDriver(availableDriver("driver-1", 500, time.Time{}))
	seedPaidTrip(env, "quote-1", "res-1", "driver-1", dayStops(futureDayStart(), 3))

	if err := env.trips.HandleAutoComplete(ctx, jobs.Payload{ReservationID: "res-1"}); err != nil {
		t.Fatalf("expected nil for unstarted trip, got %v", err)
	}
	if err := env.trips.HandleAutoComplete(ctx, jobs.Payload{ReservationID: "gone"}); err != nil {
		t.Fatalf("expected nil for missing reservation, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 6. DRIVER COOLDOWN JOB
// ──────────────────────────────────────────────

func TestTrip_CooldownReturnsDriverToAvailable(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	driver := availableDriver("driver-1", 500, time.Time{})
	driver.Status = domain.DriverStatusOnTrip
	env.driverRepo.AddDriver(driver)

	err := env.trips.HandleCooldown(context.Background(), jobs.Payload{DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusAvailable {
		t.Error("expected driver AVAILABLE after cooldown")
	}
	if env.notifier.Count(notify.EventDriverAvailable) != 1 {
		t.Errorf("expected one availability event, got %d", env.notifier.Count(notify.EventDriverAvailable))
	}
}

func TestTrip_CooldownSkipsDriverOnNewTrip(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	driver := availableDriver("driver-1", 500, time.Time{})
	driver.Status = domain.DriverStatusOnTrip
	env.driverRepo.AddDriver(driver)

	// Driver already started the next trip before the old cooldown fired.
	seedPaidTrip(env, "quote-2", "res-2", "driver-1", dayStops(futureDayStart(), 3))
	res := env.reservationRepo.GetReservation("res-2")
	res.StartedAt = time.Now()

	err := env.trips.HandleCooldown(context.Background(), jobs.Payload{DriverID: "driver-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOnTrip {
		t.Error("expected driver kept ON_TRIP for the new trip")
	}
}

func TestTrip_CooldownSkipsSuspendedAndMissingDrivers(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	driver := availableDriver("driver-1", 500, time.Time{})
	driver.Status = domain.DriverStatusSuspended
	env.driverRepo.AddDriver(driver)

	ctx := context.Background()
	if err := env.trips.HandleCooldown(ctx, jobs.Payload{DriverID: "driver-1"}); err != nil {
		t.Fatalf("expected nil for suspended driver, got %v", err)
	}
	if env.driverRepo.GetDriver("driver-1").Status != domain.DriverStatusSuspended {
		t.Error("cooldown must not override suspension")
	}

	if err := env.trips.HandleCooldown(ctx, jobs.Payload{DriverID: "gone"}); err != nil {
		t.Fatalf("expected nil for missing driver, got %v", err)
	}
}
