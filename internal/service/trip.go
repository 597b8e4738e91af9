package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"charter/internal/config"
	"charter/internal/domain"
	"charter/internal/jobs"
	"charter/internal/notify"
	"charter/internal/observability"
	"charter/internal/redis"
	"charter/internal/repository"
	"charter/internal/repository/postgres"
)

// TripService drives the operational trip lifecycle on top of paid
// reservations: start, completion (manual and automatic), and the
// post-trip driver cooldown.
type TripService struct {
	db              *sql.DB
	reservationRepo repository.ReservationRepository
	quoteRepo       repository.QuoteRepository
	driverRepo      repository.DriverRepository
	chargeRepo      repository.ChargeRepository
	queue           jobs.Queue
	throttle        redis.ThrottleStoreInterface
	locations       redis.TripLocationStoreInterface
	driverCache     *redis.DriverCache
	ledger          *EarningsLedger
	notifier        notify.Notifier
	cfg             config.LifecycleConfig
	log             *slog.Logger

	now func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(
	db *sql.DB,
	reservationRepo repository.ReservationRepository,
	quoteRepo repository.QuoteRepository,
	driverRepo repository.DriverRepository,
	chargeRepo repository.ChargeRepository,
	queue jobs.Queue,
	throttle redis.ThrottleStoreInterface,
	locations redis.TripLocationStoreInterface,
	driverCache *redis.DriverCache,
	ledger *EarningsLedger,
	notifier notify.Notifier,
	cfg config.LifecycleConfig,
	log *slog.Logger,
) *TripService {
	return &TripService{
		db:              db,
		reservationRepo: reservationRepo,
		quoteRepo:       quoteRepo,
		driverRepo:      driverRepo,
		chargeRepo:      chargeRepo,
		queue:           queue,
		throttle:        throttle,
		locations:       locations,
		driverCache:     driverCache,
		ledger:          ledger,
		notifier:        notifier,
		cfg:             cfg,
		log:             log,
		now:             time.Now,
	}
}

// StartTrip marks a reservation's trip as started by its driver.
//
// A driver acting on someone else's reservation gets ErrNotFound, the
// same as a reservation that does not exist.
func (s *TripService) StartTrip(ctx context.Context, reservationID, driverID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.AssignedDriverID != driverID {
		return nil, repository.ErrNotFound
	}
	if reservation.IsTerminal() {
		return nil, ErrReservationClosed
	}
	if !reservation.StartedAt.IsZero() {
		return nil, ErrTripAlreadyStarted
	}

	active, err := s.reservationRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrDriverHasActiveTrip
	}

	reservation.StartedAt = s.now()

	if err := s.persistStart(ctx, reservation, driverID); err != nil {
		return nil, err
	}

	s.invalidateDriverCache(ctx, driverID)

	// A cooldown from the driver's previous trip no longer applies once
	// a new trip starts.
	if err := s.queue.Cancel(ctx, jobs.KindDriverCooldown, driverID); err != nil {
		s.log.Error("failed to cancel cooldown on trip start", "driver_id", driverID, "error", err)
	}

	s.scheduleAutoComplete(ctx, reservation)

	s.notifier.Notify(ctx, notify.EventTripStarted, map[string]any{
		"reservation_id": reservation.ID,
		"driver_id":      driverID,
	})
	return reservation, nil
}

// EndTrip completes a trip at the driver's request.
//
// Completion is gated on settlement: any unpaid charge on the
// reservation blocks it with UnpaidChargesError.
func (s *TripService) EndTrip(ctx context.Context, reservationID, driverID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.AssignedDriverID != driverID {
		return nil, repository.ErrNotFound
	}
	if reservation.IsTerminal() {
		return nil, ErrReservationClosed
	}
	if reservation.StartedAt.IsZero() {
		return nil, ErrTripNotStarted
	}
	if !reservation.CompletedAt.IsZero() {
		return nil, ErrTripAlreadyEnded
	}

	unpaid, currency, err := s.chargeRepo.UnpaidTotalByReservation(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}
	if unpaid > 0 {
		return nil, &UnpaidChargesError{Amount: unpaid, Currency: currency}
	}

	if err := s.queue.Cancel(ctx, jobs.KindTripAutoComplete, reservation.ID); err != nil {
		s.log.Error("failed to cancel auto-complete on trip end", "reservation_id", reservation.ID, "error", err)
	}

	if err := s.complete(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

// HandleAutoComplete is the trip-auto-complete job handler: it closes
// out trips whose drivers never ended them.
//
// Redelivery-safe: a reservation that is gone, closed, never started,
// or already completed is a no-op.
func (s *TripService) HandleAutoComplete(ctx context.Context, payload jobs.Payload) error {
	reservation, err := s.reservationRepo.GetByID(ctx, payload.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !reservation.IsActive() || reservation.IsTerminal() {
		return nil
	}

	// Guard against firing early (clock skew, a rescheduled itinerary):
	// returning an error puts the job back on the retry schedule.
	if end, ok := s.scheduledEnd(ctx, reservation); ok {
		deadline := end.Add(s.cfg.GracePeriod)
		if s.now().Before(deadline) {
			return fmt.Errorf("grace period not elapsed until %s", deadline.Format(time.RFC3339))
		}
	}

	if unpaid, currency, err := s.chargeRepo.UnpaidTotalByReservation(ctx, reservation.ID); err == nil && unpaid > 0 {
		// Auto-complete is the janitor of record; it closes the trip
		// anyway and leaves settlement to billing follow-up.
		s.log.Warn("auto-completing trip with unpaid charges",
			"reservation_id", reservation.ID, "unpaid", unpaid, "currency", currency)
	}

	if err := s.complete(ctx, reservation); err != nil {
		return err
	}

	observability.TripsAutoCompleted.Inc()
	s.log.Info("trip auto-completed", "reservation_id", reservation.ID, "driver_id", reservation.AssignedDriverID)
	return nil
}

// HandleCooldown is the driver-cooldown job handler: it returns the
// driver to AVAILABLE once the post-trip hold elapses.
//
// Redelivery-safe: a driver who is gone, no longer ON_TRIP, or already
// on a new trip is a no-op.
func (s *TripService) HandleCooldown(ctx context.Context, payload jobs.Payload) error {
	driver, err := s.driverRepo.GetByID(ctx, payload.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if driver.Status != domain.DriverStatusOnTrip {
		return nil
	}

	active, err := s.reservationRepo.GetActiveByDriverID(ctx, driver.ID)
	if err != nil {
		return err
	}
	if active != nil {
		return nil
	}

	if err := s.driverRepo.UpdateStatus(ctx, driver.ID, domain.DriverStatusAvailable); err != nil {
		return err
	}
	s.invalidateDriverCache(ctx, driver.ID)

	s.notifier.Notify(ctx, notify.EventDriverAvailable, map[string]any{
		"driver_id": driver.ID,
	})
	return nil
}

// complete finalizes a started reservation: completion timestamp and
// status in one transaction, then best-effort cleanup, the cooldown
// job, and the earnings credit.
func (s *TripService) complete(ctx context.Context, reservation *domain.Reservation) error {
	reservation.CompletedAt = s.now()
	if !reservation.IsTerminal() {
		reservation.Status = domain.ReservationStatusCompleted
	}

	if err := s.reservationRepo.Update(ctx, reservation); err != nil {
		return err
	}

	driverID := reservation.AssignedDriverID

	// Cleanup after commit is best-effort: the location record's TTL
	// and the throttle marker's TTL bound any leftovers.
	if err := s.locations.Delete(ctx, reservation.ID); err != nil {
		s.log.Warn("failed to delete trip location", "reservation_id", reservation.ID, "error", err)
	}
	if driverID != "" {
		if err := s.throttle.Clear(ctx, driverID, reservation.ID); err != nil {
			s.log.Warn("failed to clear location throttle", "reservation_id", reservation.ID, "error", err)
		}
	}

	if driverID != "" {
		fireAt := reservation.CompletedAt.Add(s.cfg.Cooldown)
		_, err := s.queue.Enqueue(ctx, jobs.KindDriverCooldown, driverID, fireAt,
			jobs.Payload{DriverID: driverID, ReservationID: reservation.ID})
		if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
			return err
		}
	}

	if err := s.ledger.Credit(ctx, reservation.ID); err != nil {
		// The ledger re-derives everything from stored state, so a
		// failed credit can be replayed by the backfill or by support.
		s.log.Error("failed to credit driver earnings", "reservation_id", reservation.ID, "error", err)
	}

	s.notifier.Notify(ctx, notify.EventTripCompleted, map[string]any{
		"reservation_id": reservation.ID,
		"driver_id":      driverID,
	})
	return nil
}

// persistStart writes the start timestamp and the driver's ON_TRIP
// status, in one transaction when a database handle is present. db may
// be nil in tests; the writes then happen sequentially.
func (s *TripService) persistStart(ctx context.Context, reservation *domain.Reservation, driverID string) error {
	if s.db == nil {
		if err := s.reservationRepo.Update(ctx, reservation); err != nil {
			return err
		}
		return s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnTrip)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = postgres.NewReservationRepositoryWithTx(tx).Update(ctx, reservation); err != nil {
		return err
	}
	if err = postgres.NewDriverRepositoryWithTx(tx).UpdateStatus(ctx, driverID, domain.DriverStatusOnTrip); err != nil {
		return err
	}
	return tx.Commit()
}

// scheduleAutoComplete enqueues the auto-complete job at the scheduled
// itinerary end plus the grace period. A reservation whose quote lost
// its itinerary gets no job, only a warning.
func (s *TripService) scheduleAutoComplete(ctx context.Context, reservation *domain.Reservation) {
	end, ok := s.scheduledEnd(ctx, reservation)
	if !ok {
		s.log.Warn("no itinerary end for reservation, skipping auto-complete scheduling",
			"reservation_id", reservation.ID)
		return
	}

	fireAt := end.Add(s.cfg.GracePeriod)
	if fireAt.Before(s.now()) {
		fireAt = s.now()
	}

	_, err := s.queue.Enqueue(ctx, jobs.KindTripAutoComplete, reservation.ID, fireAt,
		jobs.Payload{ReservationID: reservation.ID})
	if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
		s.log.Error("failed to schedule auto-complete", "reservation_id", reservation.ID, "error", err)
	}
}

// scheduledEnd returns the reservation's scheduled itinerary end from
// its quote.
func (s *TripService) scheduledEnd(ctx context.Context, reservation *domain.Reservation) (time.Time, bool) {
	quote, err := s.quoteRepo.GetByID(ctx, reservation.QuoteID)
	if err != nil {
		return time.Time{}, false
	}
	_, end := quote.Window()
	if end.IsZero() {
		return time.Time{}, false
	}
	return end, true
}

func (s *TripService) invalidateDriverCache(ctx context.Context, driverID string) {
	if s.driverCache == nil {
		return
	}
	_ = s.driverCache.Invalidate(ctx, driverID)
}

// GetReservation retrieves a reservation by ID.
func (s *TripService) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, ErrInvalidReservationID
	}
	return s.reservationRepo.GetByID(ctx, reservationID)
}
