package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"charter/internal/domain"
	"charter/internal/repository"
)

// EarningsRepository is a PostgreSQL implementation of
// repository.EarningsRepository. The driver_payments table carries a
// unique index on reservation_id, which backs the double-credit guard
// even under concurrent invocations.
type EarningsRepository struct {
	q Querier
}

// NewEarningsRepository creates a new PostgreSQL earnings repository.
func NewEarningsRepository(db *sql.DB) *EarningsRepository {
	return &EarningsRepository{q: db}
}

// NewEarningsRepositoryWithTx creates an earnings repository using a transaction.
func NewEarningsRepositoryWithTx(tx *sql.Tx) *EarningsRepository {
	return &EarningsRepository{q: tx}
}

// Create persists a new earnings record.
func (r *EarningsRepository) Create(ctx context.Context, payment *domain.DriverPayment) error {
	query := `
		INSERT INTO driver_payments (id, driver_id, reservation_id, quote_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.DriverID,
		payment.ReservationID,
		payment.QuoteID,
		payment.Amount,
		payment.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return repository.ErrDuplicate
	}
	return err
}

// GetByReservationID retrieves the earnings record for a reservation.
// Returns nil if none exists.
func (r *EarningsRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.DriverPayment, error) {
	query := `
		SELECT id, driver_id, reservation_id, quote_id, amount, created_at
		FROM driver_payments WHERE reservation_id = $1
	`

	var payment domain.DriverPayment
	err := r.q.QueryRowContext(ctx, query, reservationID).Scan(
		&payment.ID,
		&payment.DriverID,
		&payment.ReservationID,
		&payment.QuoteID,
		&payment.Amount,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// Ensure EarningsRepository implements repository.EarningsRepository.
var _ repository.EarningsRepository = (*EarningsRepository)(nil)
