package service

import (
	"context"
	"log/slog"
	"time"

	"charter/internal/config"
	"charter/internal/notify"
	"charter/internal/observability"
	"charter/internal/redis"
	"charter/internal/repository"
)

// LocationService ingests driver position updates for active trips.
//
// Updates are throttled per (driver, reservation): at most one accepted
// update per configured interval, enforced by a Redis marker so the
// limit holds across server instances.
type LocationService struct {
	reservationRepo repository.ReservationRepository
	throttle        redis.ThrottleStoreInterface
	locations       redis.TripLocationStoreInterface
	notifier        notify.Notifier
	cfg             config.LifecycleConfig
	log             *slog.Logger

	now func() time.Time
}

// NewLocationService creates a new LocationService.
func NewLocationService(
	reservationRepo repository.ReservationRepository,
	throttle redis.ThrottleStoreInterface,
	locations redis.TripLocationStoreInterface,
	notifier notify.Notifier,
	cfg config.LifecycleConfig,
	log *slog.Logger,
) *LocationService {
	return &LocationService{
		reservationRepo: reservationRepo,
		throttle:        throttle,
		locations:       locations,
		notifier:        notifier,
		cfg:             cfg,
		log:             log,
		now:             time.Now,
	}
}

// UpdateLocation records a driver position for an active trip.
//
// Rejections: out-of-range coordinates, a reservation the driver does
// not own (reported as not found), a trip not in progress, or an update
// inside the throttle interval.
func (s *LocationService) UpdateLocation(ctx context.Context, reservationID, driverID string, lat, lng float64) error {
	if reservationID == "" {
		return ErrInvalidReservationID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidLocation
	}

	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.AssignedDriverID != driverID {
		return repository.ErrNotFound
	}
	if reservation.IsTerminal() {
		return ErrReservationClosed
	}
	if !reservation.IsActive() {
		return ErrTripNotStarted
	}

	admitted, err := s.throttle.TryMark(ctx, driverID, reservationID, s.cfg.ThrottleInterval)
	if err != nil {
		return err
	}
	if !admitted {
		observability.LocationThrottled.Inc()
		return ErrLocationThrottled
	}

	loc := &redis.TripLocation{
		ReservationID: reservationID,
		DriverID:      driverID,
		Lat:           lat,
		Lng:           lng,
		CapturedAt:    s.now(),
	}
	if err := s.locations.Set(ctx, loc, s.cfg.LocationTTL); err != nil {
		return err
	}

	observability.LocationAccepted.Inc()

	s.notifier.Notify(ctx, notify.EventLocationUpdated, map[string]any{
		"reservation_id": reservationID,
		"driver_id":      driverID,
		"lat":            lat,
		"lng":            lng,
	})
	return nil
}

// GetLocation returns the last accepted position for a trip, or nil if
// none has been recorded (or it aged out).
func (s *LocationService) GetLocation(ctx context.Context, reservationID string) (*redis.TripLocation, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	return s.locations.Get(ctx, reservationID)
}
