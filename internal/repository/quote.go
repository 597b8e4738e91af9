package repository

import (
	"context"
	"time"

	"charter/internal/domain"
)

// QuoteRepository defines the persistence operations for quotes.
type QuoteRepository interface {
	// Create persists a new quote.
	Create(ctx context.Context, quote *domain.Quote) error

	// GetByID retrieves a quote by ID.
	GetByID(ctx context.Context, id string) (*domain.Quote, error)

	// Update updates an existing quote.
	Update(ctx context.Context, quote *domain.Quote) error

	// ListByStatus retrieves all quotes in the given status.
	ListByStatus(ctx context.Context, status domain.QuoteStatus) ([]*domain.Quote, error)

	// BookedDriverIDs returns the ids of drivers committed to any other
	// quote or reservation whose itinerary overlaps [start, end].
	// excludeQuoteID is skipped so re-evaluating a quote does not see
	// its own hold.
	BookedDriverIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error)

	// BookedVehicleIDs is the vehicle equivalent of BookedDriverIDs.
	BookedVehicleIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error)
}
