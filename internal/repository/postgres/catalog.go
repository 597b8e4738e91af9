package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"charter/internal/domain"
	"charter/internal/repository"
)

// CatalogRepository serves the vehicle and amenity catalogs plus the
// active pricing configuration. These are small, slow-changing tables.
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new PostgreSQL catalog repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{q: db}
}

// GetByIDs retrieves vehicles by id.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, class, per_km_rate, seats FROM vehicles
		WHERE id = ANY($1) ORDER BY array_position($1, id)
	`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Class, &v.PerKmRate, &v.Seats); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// AmenityRepositoryView exposes the amenity slice of the catalog.
type AmenityRepositoryView struct {
	*CatalogRepository
}

// Amenities returns an AmenityRepository view over the catalog.
func (r *CatalogRepository) Amenities() *AmenityRepositoryView {
	return &AmenityRepositoryView{r}
}

// GetByIDs retrieves amenities by id.
func (v *AmenityRepositoryView) GetByIDs(ctx context.Context, ids []string) ([]domain.Amenity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, fee FROM amenities
		WHERE id = ANY($1) ORDER BY array_position($1, id)
	`
	rows, err := v.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amenities []domain.Amenity
	for rows.Next() {
		var a domain.Amenity
		if err := rows.Scan(&a.ID, &a.Name, &a.Fee); err != nil {
			return nil, err
		}
		amenities = append(amenities, a)
	}
	return amenities, rows.Err()
}

// GetActive returns the active pricing configuration.
func (r *CatalogRepository) GetActive(ctx context.Context) (*domain.PricingConfig, error) {
	query := `
		SELECT id, base_fare, night_charge_rate, tax_rate, default_hourly_rate,
		       night_start_hour, night_end_hour, active
		FROM pricing_configs WHERE active LIMIT 1
	`

	var cfg domain.PricingConfig
	err := r.q.QueryRowContext(ctx, query).Scan(
		&cfg.ID,
		&cfg.BaseFare,
		&cfg.NightChargeRate,
		&cfg.TaxRate,
		&cfg.DefaultHourlyRate,
		&cfg.NightStartHour,
		&cfg.NightEndHour,
		&cfg.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// UnpaidTotalByReservation returns the unpaid charge total and currency
// for a reservation.
func (r *CatalogRepository) UnpaidTotalByReservation(ctx context.Context, reservationID string) (float64, string, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COALESCE(MAX(currency), 'INR')
		FROM reservation_charges
		WHERE reservation_id = $1 AND NOT paid
	`

	var total float64
	var currency string
	if err := r.q.QueryRowContext(ctx, query, reservationID).Scan(&total, &currency); err != nil {
		return 0, "", err
	}
	return total, currency, nil
}

// Ensure CatalogRepository satisfies the catalog interfaces.
var (
	_ repository.VehicleRepository       = (*CatalogRepository)(nil)
	_ repository.AmenityRepository       = (*AmenityRepositoryView)(nil)
	_ repository.PricingConfigRepository = (*CatalogRepository)(nil)
	_ repository.ChargeRepository        = (*CatalogRepository)(nil)
)
