package postgres

import (
	"context"
	"database/sql"
	"errors"

	"charter/internal/domain"
	"charter/internal/repository"
)

// ReservationRepository is a PostgreSQL implementation of
// repository.ReservationRepository.
type ReservationRepository struct {
	q Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{q: db}
}

// NewReservationRepositoryWithTx creates a reservation repository using a transaction.
func NewReservationRepositoryWithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

const reservationColumns = `id, quote_id, assigned_driver_id, status, started_at, completed_at, created_at`

// Create persists a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		reservation.ID,
		reservation.QuoteID,
		reservation.AssignedDriverID,
		reservation.Status,
		nullTime(reservation.StartedAt),
		nullTime(reservation.CompletedAt),
		reservation.CreatedAt,
	)
	return err
}

// GetByID retrieves a reservation by ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	reservation, err := scanReservation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return reservation, nil
}

// Update updates an existing reservation.
func (r *ReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET quote_id = $1, assigned_driver_id = $2, status = $3, started_at = $4, completed_at = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		reservation.QuoteID,
		reservation.AssignedDriverID,
		reservation.Status,
		nullTime(reservation.StartedAt),
		nullTime(reservation.CompletedAt),
		reservation.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByQuoteID retrieves the reservation created from a quote. Returns
// nil if none exists.
func (r *ReservationRepository) GetByQuoteID(ctx context.Context, quoteID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE quote_id = $1 LIMIT 1`

	reservation, err := scanReservation(r.q.QueryRowContext(ctx, query, quoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reservation, nil
}

// GetActiveByDriverID retrieves the driver's started-not-completed
// reservation. Returns nil if none exists.
func (r *ReservationRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM reservations
		WHERE assigned_driver_id = $1 AND started_at IS NOT NULL AND completed_at IS NULL
		LIMIT 1
	`

	reservation, err := scanReservation(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reservation, nil
}

// ListActive retrieves all started-not-completed reservations.
func (r *ReservationRepository) ListActive(ctx context.Context) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM reservations
		WHERE started_at IS NOT NULL AND completed_at IS NULL
		ORDER BY started_at
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// LatestCompletedByDriverID retrieves the driver's most recently
// completed reservation. Returns nil if none exists.
func (r *ReservationRepository) LatestCompletedByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM reservations
		WHERE assigned_driver_id = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1
	`

	reservation, err := scanReservation(r.q.QueryRowContext(ctx, query, driverID, domain.ReservationStatusCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reservation, nil
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var reservation domain.Reservation
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(
		&reservation.ID,
		&reservation.QuoteID,
		&reservation.AssignedDriverID,
		&reservation.Status,
		&startedAt,
		&completedAt,
		&reservation.CreatedAt,
	); err != nil {
		return nil, err
	}

	if startedAt.Valid {
		reservation.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		reservation.CompletedAt = completedAt.Time
	}
	return &reservation, nil
}

// Ensure ReservationRepository implements repository.ReservationRepository.
var _ repository.ReservationRepository = (*ReservationRepository)(nil)
