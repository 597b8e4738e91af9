package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"charter/internal/domain"
	"charter/internal/repository"
	"charter/internal/service"
)

// ──────────────────────────────────────────────
// 9. LOCATION UPDATES AND THROTTLING
// ──────────────────────────────────────────────

func seedActiveTrip(env *lifecycleEnv) {
	env.quoteRepo.AddQuote(&domain.Quote{
		ID:               "quote-1",
		Status:           domain.QuoteStatusPaid,
		Stops:            dayStops(futureDayStart(), 3),
		VehicleIDs:       []string{"v-1"},
		AssignedDriverID: "driver-1",
	})
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:               "res-1",
		QuoteID:          "quote-1",
		AssignedDriverID: "driver-1",
		Status:           domain.ReservationStatusConfirmed,
		StartedAt:        time.Now(),
	})
}

func TestLocation_ThrottleAdmitsOnePerInterval(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	seedActiveTrip(env)

	// Drive the throttle clock by hand around the 5s interval.
	base := time.Now()
	clock := base
	env.throttle.Now = func() time.Time { return clock }

	if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", 12.97, 77.59); err != nil {
		t.Fatalf("unexpected error on first update: %v", err)
	}

	clock = base.Add(env.cfg.ThrottleInterval - time.Millisecond)
	err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", 12.98, 77.60)
	if !errors.Is(err, service.ErrLocationThrottled) {
		t.Fatalf("expected ErrLocationThrottled inside the interval, got %v", err)
	}

	clock = base.Add(env.cfg.ThrottleInterval + time.Millisecond)
	if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", 12.99, 77.61); err != nil {
		t.Fatalf("unexpected error after the interval: %v", err)
	}

	// The stored position is the last admitted one, not the dropped one.
	loc, err := env.locationSvc.GetLocation(ctx, "res-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil || loc.Lat != 12.99 || loc.Lng != 77.61 {
		t.Errorf("expected last admitted position, got %+v", loc)
	}
}

func TestLocation_RejectsOutOfRangeCoordinates(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	seedActiveTrip(env)

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"lat too high", 90.01, 0},
		{"lat too low", -90.01, 0},
		{"lng too high", 0, 180.01},
		{"lng too low", 0, -180.01},
	}
	for _, tc := range cases {
		if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", tc.lat, tc.lng); !errors.Is(err, service.ErrInvalidLocation) {
			t.Errorf("%s: expected ErrInvalidLocation, got %v", tc.name, err)
		}
	}

	if loc, _ := env.locationSvc.GetLocation(ctx, "res-1"); loc != nil {
		t.Errorf("expected no stored position, got %+v", loc)
	}
}

func TestLocation_RequiresAnActiveTripByItsDriver(t *testing.T) {
	t.Parallel()

	env := newLifecycleEnv()
	ctx := context.Background()
	seedActiveTrip(env)

	if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-2", 12.97, 77.59); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a foreign driver, got %v", err)
	}

	res := env.reservationRepo.GetReservation("res-1")
	res.StartedAt = time.Time{}
	if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", 12.97, 77.59); !errors.Is(err, service.ErrTripNotStarted) {
		t.Errorf("expected ErrTripNotStarted before start, got %v", err)
	}

	res.Status = domain.ReservationStatusCancelled
	if err := env.locationSvc.UpdateLocation(ctx, "res-1", "driver-1", 12.97, 77.59); !errors.Is(err, service.ErrReservationClosed) {
		t.Errorf("expected ErrReservationClosed for a cancelled trip, got %v", err)
	}
}
