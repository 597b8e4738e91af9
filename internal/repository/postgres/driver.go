package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"charter/internal/domain"
	"charter/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, COALESCE(name, ''), COALESCE(phone, ''), status, hourly_rate, last_assigned_at, total_earnings, onboarded`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, phone, status, hourly_rate, last_assigned_at, total_earnings, onboarded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.Status,
		driver.HourlyRate,
		nullTime(driver.LastAssignedAt),
		driver.TotalEarnings,
		driver.Onboarded,
	)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY id`
	return r.queryDrivers(ctx, query)
}

// ListAssignable retrieves drivers with status AVAILABLE and onboarding
// complete, ordered for fairness: least recently assigned first, never
// assigned before everyone.
func (r *DriverRepository) ListAssignable(ctx context.Context) ([]*domain.Driver, error) {
	query := `
		SELECT ` + driverColumns + ` FROM drivers
		WHERE status = $1 AND onboarded
		ORDER BY last_assigned_at ASC NULLS FIRST, id
	`
	return r.queryDrivers(ctx, query, domain.DriverStatusAvailable)
}

// ListByStatus retrieves all drivers in the given status.
func (r *DriverRepository) ListByStatus(ctx context.Context, status domain.DriverStatus) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE status = $1 ORDER BY id`
	return r.queryDrivers(ctx, query, status)
}

// UpdateStatus updates the status of a driver.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	query := `UPDATE drivers SET status = $1 WHERE id = $2`
	return r.execExpectingRow(ctx, query, status, id)
}

// SetLastAssignedAt records the moment of a genuine new assignment.
func (r *DriverRepository) SetLastAssignedAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE drivers SET last_assigned_at = $1 WHERE id = $2`
	return r.execExpectingRow(ctx, query, at, id)
}

// IncrementEarnings adds amount to the driver's total earnings.
func (r *DriverRepository) IncrementEarnings(ctx context.Context, id string, amount float64) error {
	query := `UPDATE drivers SET total_earnings = total_earnings + $1 WHERE id = $2`
	return r.execExpectingRow(ctx, query, amount, id)
}

func (r *DriverRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
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

func (r *DriverRepository) queryDrivers(ctx context.Context, query string, args ...any) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lastAssignedAt sql.NullTime

	if err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Status,
		&driver.HourlyRate,
		&lastAssignedAt,
		&driver.TotalEarnings,
		&driver.Onboarded,
	); err != nil {
		return nil, err
	}

	if lastAssignedAt.Valid {
		driver.LastAssignedAt = lastAssignedAt.Time
	}
	return &driver, nil
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
