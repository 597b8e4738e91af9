package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"charter/internal/domain"
	"charter/internal/repository"
)

// QuoteRepository is a PostgreSQL implementation of repository.QuoteRepository.
type QuoteRepository struct {
	q Querier
}

// NewQuoteRepository creates a new PostgreSQL quote repository.
func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{q: db}
}

// NewQuoteRepositoryWithTx creates a quote repository using a transaction.
func NewQuoteRepositoryWithTx(tx *sql.Tx) *QuoteRepository {
	return &QuoteRepository{q: tx}
}

const quoteColumns = `id, requester_id, status, stops, vehicle_ids, amenity_ids,
	assigned_driver_id, actual_driver_rate, pricing, quoted_at, created_at`

// Create persists a new quote. The itinerary window is denormalized
// into window_start/window_end so the booked-set overlap queries can
// filter without unpacking the stops jsonb.
func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	query := `
		INSERT INTO quotes (` + quoteColumns + `, window_start, window_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	stops, vehicles, amenities, pricing, err := marshalQuoteFields(quote)
	if err != nil {
		return err
	}

	windowStart, windowEnd := quote.Window()
	_, err = r.q.ExecContext(ctx, query,
		quote.ID,
		quote.RequesterID,
		quote.Status,
		stops,
		vehicles,
		amenities,
		nullString(quote.AssignedDriverID),
		quote.ActualDriverRate,
		pricing,
		nullTime(quote.QuotedAt),
		quote.CreatedAt,
		nullTime(windowStart),
		nullTime(windowEnd),
	)
	return err
}

// GetByID retrieves a quote by ID.
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`

	quote, err := scanQuote(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return quote, nil
}

// Update updates an existing quote, keeping the denormalized window
// bounds in step with the stops.
func (r *QuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	query := `
		UPDATE quotes
		SET requester_id = $1, status = $2, stops = $3, vehicle_ids = $4, amenity_ids = $5,
		    assigned_driver_id = $6, actual_driver_rate = $7, pricing = $8, quoted_at = $9,
		    window_start = $10, window_end = $11
		WHERE id = $12
	`

	stops, vehicles, amenities, pricing, err := marshalQuoteFields(quote)
	if err != nil {
		return err
	}

	windowStart, windowEnd := quote.Window()
	result, err := r.q.ExecContext(ctx, query,
		quote.RequesterID,
		quote.Status,
		stops,
		vehicles,
		amenities,
		nullString(quote.AssignedDriverID),
		quote.ActualDriverRate,
		pricing,
		nullTime(quote.QuotedAt),
		nullTime(windowStart),
		nullTime(windowEnd),
		quote.ID,
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

// ListByStatus retrieves all quotes in the given status.
func (r *QuoteRepository) ListByStatus(ctx context.Context, status domain.QuoteStatus) ([]*domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE status = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*domain.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// BookedDriverIDs returns driver ids committed to any other quote or
// reservation overlapping [start, end].
func (r *QuoteRepository) BookedDriverIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error) {
	query := `
		SELECT DISTINCT assigned_driver_id FROM quotes
		WHERE assigned_driver_id IS NOT NULL
		  AND id != $1
		  AND status IN ('QUOTED', 'PAID')
		  AND window_start <= $3 AND window_end >= $2
	`
	return r.queryIDs(ctx, query, excludeQuoteID, start, end)
}

// BookedVehicleIDs returns vehicle ids committed to any other quote or
// reservation overlapping [start, end].
func (r *QuoteRepository) BookedVehicleIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error) {
	query := `
		SELECT DISTINCT v.vehicle_id
		FROM quotes q, jsonb_array_elements_text(q.vehicle_ids) AS v(vehicle_id)
		WHERE q.id != $1
		  AND q.status IN ('QUOTED', 'PAID')
		  AND q.window_start <= $3 AND q.window_end >= $2
	`
	return r.queryIDs(ctx, query, excludeQuoteID, start, end)
}

func (r *QuoteRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*domain.Quote, error) {
	var quote domain.Quote
	var stops, vehicles, amenities, pricing []byte
	var assignedDriverID sql.NullString
	var quotedAt sql.NullTime

	if err := row.Scan(
		&quote.ID,
		&quote.RequesterID,
		&quote.Status,
		&stops,
		&vehicles,
		&amenities,
		&assignedDriverID,
		&quote.ActualDriverRate,
		&pricing,
		&quotedAt,
		&quote.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stops, &quote.Stops); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(vehicles, &quote.VehicleIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(amenities, &quote.AmenityIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pricing, &quote.Pricing); err != nil {
		return nil, err
	}
	if assignedDriverID.Valid {
		quote.AssignedDriverID = assignedDriverID.String
	}
	if quotedAt.Valid {
		quote.QuotedAt = quotedAt.Time
	}
	return &quote, nil
}

func marshalQuoteFields(quote *domain.Quote) (stops, vehicles, amenities, pricing []byte, err error) {
	if stops, err = json.Marshal(quote.Stops); err != nil {
		return
	}
	if vehicles, err = json.Marshal(emptySlice(quote.VehicleIDs)); err != nil {
		return
	}
	if amenities, err = json.Marshal(emptySlice(quote.AmenityIDs)); err != nil {
		return
	}
	pricing, err = json.Marshal(quote.Pricing)
	return
}

// emptySlice keeps jsonb columns as [] instead of null.
func emptySlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Ensure QuoteRepository implements repository.QuoteRepository.
var _ repository.QuoteRepository = (*QuoteRepository)(nil)
