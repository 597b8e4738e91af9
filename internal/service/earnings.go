package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"charter/internal/domain"
	"charter/internal/repository"
	"charter/internal/repository/postgres"
)

// EarningsLedger credits a driver's earnings for completed
// reservations, exactly once per reservation.
//
// The guard is the earnings record itself: its presence means the
// credit already happened, so any caller (trip completion, the
// auto-complete job, a backfill replay) can call Credit safely.
type EarningsLedger struct {
	db              *sql.DB
	earningsRepo    repository.EarningsRepository
	driverRepo      repository.DriverRepository
	quoteRepo       repository.QuoteRepository
	reservationRepo repository.ReservationRepository
	log             *slog.Logger

	now func() time.Time
}

// NewEarningsLedger creates a new EarningsLedger. db may be nil in
// tests; the record and the counter are then written sequentially
// instead of in one transaction.
func NewEarningsLedger(
	db *sql.DB,
	earningsRepo repository.EarningsRepository,
	driverRepo repository.DriverRepository,
	quoteRepo repository.QuoteRepository,
	reservationRepo repository.ReservationRepository,
	log *slog.Logger,
) *EarningsLedger {
	return &EarningsLedger{
		db:              db,
		earningsRepo:    earningsRepo,
		driverRepo:      driverRepo,
		quoteRepo:       quoteRepo,
		reservationRepo: reservationRepo,
		log:             log,
		now:             time.Now,
	}
}

// Credit records the driver-charge portion of a completed reservation
// as driver earnings. Calling it again for the same reservation, or
// for a reservation that does not qualify, is a no-op.
func (l *EarningsLedger) Credit(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return ErrInvalidReservationID
	}

	reservation, err := l.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.Status != domain.ReservationStatusCompleted || reservation.AssignedDriverID == "" {
		return nil
	}

	existing, err := l.earningsRepo.GetByReservationID(ctx, reservationID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	quote, err := l.quoteRepo.GetByID(ctx, reservation.QuoteID)
	if err != nil {
		return err
	}
	if quote.Pricing.DriverCharge <= 0 {
		return nil
	}

	payment := &domain.DriverPayment{
		ID:            uuid.New().String(),
		DriverID:      reservation.AssignedDriverID,
		ReservationID: reservation.ID,
		QuoteID:       quote.ID,
		Amount:        quote.Pricing.DriverCharge,
		CreatedAt:     l.now(),
	}

	if l.db == nil {
		l.log.Warn("earnings fallback write without transaction", "reservation_id", reservation.ID)
		if err := l.earningsRepo.Create(ctx, payment); err != nil {
			return err
		}
		return l.driverRepo.IncrementEarnings(ctx, payment.DriverID, payment.Amount)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = postgres.NewEarningsRepositoryWithTx(tx).Create(ctx, payment); err != nil {
		return err
	}
	if err = postgres.NewDriverRepositoryWithTx(tx).IncrementEarnings(ctx, payment.DriverID, payment.Amount); err != nil {
		return err
	}
	return tx.Commit()
}
