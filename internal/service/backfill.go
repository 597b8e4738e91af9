package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"charter/internal/config"
	"charter/internal/domain"
	"charter/internal/jobs"
	"charter/internal/repository"
)

// Backfill rebuilds the delayed job schedule from stored state after a
// restart or a queue wipe.
//
// Every job it enqueues derives its fire time from persisted
// timestamps, so a deadline that already passed fires immediately
// instead of being lost. Enqueueing next to a surviving job is safe:
// the queue's one-live-job rule rejects the duplicate.
type Backfill struct {
	quoteRepo       repository.QuoteRepository
	reservationRepo repository.ReservationRepository
	driverRepo      repository.DriverRepository
	queue           jobs.Queue
	cfg             config.LifecycleConfig
	log             *slog.Logger

	now func() time.Time
}

// NewBackfill creates a new Backfill.
func NewBackfill(
	quoteRepo repository.QuoteRepository,
	reservationRepo repository.ReservationRepository,
	driverRepo repository.DriverRepository,
	queue jobs.Queue,
	cfg config.LifecycleConfig,
	log *slog.Logger,
) *Backfill {
	return &Backfill{
		quoteRepo:       quoteRepo,
		reservationRepo: reservationRepo,
		driverRepo:      driverRepo,
		queue:           queue,
		cfg:             cfg,
		log:             log,
		now:             time.Now,
	}
}

// Run reseeds expiry jobs for quotes awaiting payment, auto-complete
// jobs for in-flight trips, cooldowns for drivers parked between trips,
// and the recurring pending-quote sweep.
func (b *Backfill) Run(ctx context.Context) error {
	if err := b.seedQuoteExpiries(ctx); err != nil {
		return err
	}
	if err := b.seedAutoCompletes(ctx); err != nil {
		return err
	}
	if err := b.seedDriverCooldowns(ctx); err != nil {
		return err
	}
	return b.seedPendingSweep(ctx)
}

func (b *Backfill) seedQuoteExpiries(ctx context.Context) error {
	quoted, err := b.quoteRepo.ListByStatus(ctx, domain.QuoteStatusQuoted)
	if err != nil {
		return err
	}

	for _, quote := range quoted {
		fireAt := quote.QuotedAt.Add(b.cfg.PaymentWindow)
		if fireAt.Before(b.now()) {
			fireAt = b.now()
		}
		if err := b.enqueue(ctx, jobs.KindQuoteExpiry, quote.ID, fireAt, jobs.Payload{QuoteID: quote.ID}); err != nil {
			return err
		}
	}

	b.log.Info("backfilled quote expiry jobs", "quotes", len(quoted))
	return nil
}

func (b *Backfill) seedAutoCompletes(ctx context.Context) error {
	active, err := b.reservationRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	seeded := 0
	for _, reservation := range active {
		quote, err := b.quoteRepo.GetByID(ctx, reservation.QuoteID)
		if err != nil {
			b.log.Warn("skipping reservation with missing quote", "reservation_id", reservation.ID, "error", err)
			continue
		}
		_, end := quote.Window()
		if end.IsZero() {
			b.log.Warn("skipping reservation with empty itinerary", "reservation_id", reservation.ID)
			continue
		}

		fireAt := end.Add(b.cfg.GracePeriod)
		if fireAt.Before(b.now()) {
			fireAt = b.now()
		}
		if err := b.enqueue(ctx, jobs.KindTripAutoComplete, reservation.ID, fireAt,
			jobs.Payload{ReservationID: reservation.ID}); err != nil {
			return err
		}
		seeded++
	}

	b.log.Info("backfilled trip auto-complete jobs", "reservations", seeded)
	return nil
}

// seedDriverCooldowns re-enqueues the cooldown for every driver held
// ON_TRIP with no trip in progress. Without it a driver whose cooldown
// job was lost would stay ON_TRIP forever: the auto-complete handler
// no-ops once the reservation is completed, so nothing else
// re-enqueues the release.
func (b *Backfill) seedDriverCooldowns(ctx context.Context) error {
	onTrip, err := b.driverRepo.ListByStatus(ctx, domain.DriverStatusOnTrip)
	if err != nil {
		return err
	}

	seeded := 0
	for _, driver := range onTrip {
		active, err := b.reservationRepo.GetActiveByDriverID(ctx, driver.ID)
		if err != nil {
			return err
		}
		if active != nil {
			// The trip's auto-complete job owns this driver.
			continue
		}

		last, err := b.reservationRepo.LatestCompletedByDriverID(ctx, driver.ID)
		if err != nil {
			return err
		}

		fireAt := b.now()
		payload := jobs.Payload{DriverID: driver.ID}
		if last != nil {
			payload.ReservationID = last.ID
			if t := last.CompletedAt.Add(b.cfg.Cooldown); t.After(fireAt) {
				fireAt = t
			}
		} else {
			b.log.Warn("driver on trip with no completed reservation, releasing now", "driver_id", driver.ID)
		}

		if err := b.enqueue(ctx, jobs.KindDriverCooldown, driver.ID, fireAt, payload); err != nil {
			return err
		}
		seeded++
	}

	b.log.Info("backfilled driver cooldown jobs", "drivers", seeded)
	return nil
}

// seedPendingSweep ensures exactly one recurring pending-quote sweep
// exists. The worker reschedules it after each run.
func (b *Backfill) seedPendingSweep(ctx context.Context) error {
	return b.enqueue(ctx, jobs.KindProcessPendingQuotes, jobs.GlobalCorrelationID,
		b.now().Add(b.cfg.SweepInterval), jobs.Payload{})
}

func (b *Backfill) enqueue(ctx context.Context, kind jobs.Kind, correlationID string, fireAt time.Time, payload jobs.Payload) error {
	_, err := b.queue.Enqueue(ctx, kind, correlationID, fireAt, payload)
	if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
		return err
	}
	return nil
}
