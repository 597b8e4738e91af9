package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"charter/internal/domain"
	"charter/internal/pricing"
	"charter/internal/redis"
	"charter/internal/repository"
)

// AssignmentEngine picks a driver for a quote and prices the result.
//
// Fairness: among eligible drivers the one with the oldest (or absent)
// last assignment wins. The engine never writes the quote itself; the
// caller applies the returned Assignment under its own guards.
type AssignmentEngine struct {
	quoteRepo   repository.QuoteRepository
	driverRepo  repository.DriverRepository
	vehicleRepo repository.VehicleRepository
	amenityRepo repository.AmenityRepository
	pricingRepo repository.PricingConfigRepository
	driverCache *redis.DriverCache
	log         *slog.Logger

	now func() time.Time
}

// NewAssignmentEngine creates a new AssignmentEngine. driverCache may
// be nil, in which case candidate filtering hits the database only.
func NewAssignmentEngine(
	quoteRepo repository.QuoteRepository,
	driverRepo repository.DriverRepository,
	vehicleRepo repository.VehicleRepository,
	amenityRepo repository.AmenityRepository,
	pricingRepo repository.PricingConfigRepository,
	driverCache *redis.DriverCache,
	log *slog.Logger,
) *AssignmentEngine {
	return &AssignmentEngine{
		quoteRepo:   quoteRepo,
		driverRepo:  driverRepo,
		vehicleRepo: vehicleRepo,
		amenityRepo: amenityRepo,
		pricingRepo: pricingRepo,
		driverCache: driverCache,
		log:         log,
		now:         time.Now,
	}
}

// Assignment is the outcome of one evaluation.
//
// Driver is nil when no eligible driver exists; Pricing is then an
// estimate at the configured default hourly rate so the requester still
// sees a number while the quote waits for a driver.
type Assignment struct {
	Driver        *domain.Driver
	Pricing       domain.PricingBreakdown
	NewAssignment bool
}

// Evaluate selects a driver for the quote and computes its pricing.
//
// The quote's current driver is kept whenever still eligible, so a
// recalculation does not shuffle assignments without cause, and
// LastAssignedAt is only advanced on a genuinely new assignment.
func (e *AssignmentEngine) Evaluate(ctx context.Context, quote *domain.Quote) (*Assignment, error) {
	if len(quote.Stops) == 0 {
		return nil, ErrItineraryRequired
	}
	if len(quote.VehicleIDs) == 0 {
		return nil, ErrVehiclesRequired
	}

	cfg, err := e.pricingRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoPricingConfig
		}
		return nil, err
	}

	vehicles, err := e.vehicleRepo.GetByIDs(ctx, quote.VehicleIDs)
	if err != nil {
		return nil, err
	}
	amenities, err := e.amenityRepo.GetByIDs(ctx, quote.AmenityIDs)
	if err != nil {
		return nil, err
	}

	winner, err := e.selectDriver(ctx, quote)
	if err != nil {
		return nil, err
	}

	hourlyRate := cfg.DefaultHourlyRate
	if winner != nil {
		hourlyRate = winner.HourlyRate
		if hourlyRate <= 0 {
			hourlyRate = cfg.DefaultHourlyRate
		}
	}

	breakdown := pricing.Compute(pricing.Inputs{
		Stops:      quote.Stops,
		Vehicles:   vehicles,
		Amenities:  amenities,
		Config:     *cfg,
		HourlyRate: hourlyRate,
	})

	result := &Assignment{Driver: winner, Pricing: breakdown}

	if winner != nil && winner.ID != quote.AssignedDriverID {
		result.NewAssignment = true
		if err := e.driverRepo.SetLastAssignedAt(ctx, winner.ID, e.now()); err != nil {
			return nil, err
		}
		e.invalidateCache(ctx, winner.ID)
	}

	return result, nil
}

// ConflictingVehicleIDs returns the subset of the quote's vehicles that
// another quote or reservation holds over the same itinerary window.
func (e *AssignmentEngine) ConflictingVehicleIDs(ctx context.Context, quote *domain.Quote) ([]string, error) {
	start, end := quote.Window()
	booked, err := e.quoteRepo.BookedVehicleIDs(ctx, start, end, quote.ID)
	if err != nil {
		return nil, err
	}

	bookedSet := make(map[string]struct{}, len(booked))
	for _, id := range booked {
		bookedSet[id] = struct{}{}
	}

	var conflicts []string
	for _, id := range quote.VehicleIDs {
		if _, ok := bookedSet[id]; ok {
			conflicts = append(conflicts, id)
		}
	}
	return conflicts, nil
}

// selectDriver returns the eligible driver for the quote, or nil when
// none exists.
func (e *AssignmentEngine) selectDriver(ctx context.Context, quote *domain.Quote) (*domain.Driver, error) {
	start, end := quote.Window()

	booked, err := e.quoteRepo.BookedDriverIDs(ctx, start, end, quote.ID)
	if err != nil {
		return nil, err
	}
	bookedSet := make(map[string]struct{}, len(booked))
	for _, id := range booked {
		bookedSet[id] = struct{}{}
	}

	candidates, err := e.driverRepo.ListAssignable(ctx)
	if err != nil {
		return nil, err
	}

	var eligible []*domain.Driver
	for _, d := range candidates {
		if _, taken := bookedSet[d.ID]; taken {
			continue
		}
		// Cheap pre-filter against the cache before re-verifying from
		// the database below. A stale entry can only cause an extra
		// read, never a wrong assignment.
		if cached := e.cachedDriver(ctx, d.ID); cached != nil && cached.Status != string(domain.DriverStatusAvailable) {
			continue
		}
		if !d.Assignable() {
			e.log.Warn("skipping non-assignable driver surfaced as candidate", "driver_id", d.ID, "status", string(d.Status))
			continue
		}
		eligible = append(eligible, d)
	}

	if len(eligible) == 0 {
		return nil, nil
	}

	// Keep the current driver when still eligible.
	if quote.AssignedDriverID != "" {
		for _, d := range eligible {
			if d.ID == quote.AssignedDriverID {
				return d, nil
			}
		}
	}

	// Oldest assignment first; never-assigned drivers sort ahead of
	// everyone. The repository already orders this way, but the winner
	// decides who gets paid, so re-sort rather than trust query order.
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.LastAssignedAt.IsZero() != b.LastAssignedAt.IsZero() {
			return a.LastAssignedAt.IsZero()
		}
		if !a.LastAssignedAt.Equal(b.LastAssignedAt) {
			return a.LastAssignedAt.Before(b.LastAssignedAt)
		}
		return a.ID < b.ID
	})

	winner := eligible[0]

	// Re-verify from the database: the candidate list or cache may be
	// stale by the time we commit.
	fresh, err := e.driverRepo.GetByID(ctx, winner.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !fresh.Assignable() {
		e.invalidateCache(ctx, fresh.ID)
		return nil, nil
	}

	e.cacheDriver(ctx, fresh)
	return fresh, nil
}

func (e *AssignmentEngine) cachedDriver(ctx context.Context, driverID string) *redis.CachedDriver {
	if e.driverCache == nil {
		return nil
	}
	cached, err := e.driverCache.Get(ctx, driverID)
	if err != nil {
		return nil
	}
	return cached
}

func (e *AssignmentEngine) cacheDriver(ctx context.Context, driver *domain.Driver) {
	if e.driverCache == nil {
		return
	}
	_ = e.driverCache.Set(ctx, &redis.CachedDriver{
		ID:             driver.ID,
		Status:         string(driver.Status),
		HourlyRate:     driver.HourlyRate,
		LastAssignedAt: driver.LastAssignedAt,
		Onboarded:      driver.Onboarded,
	})
}

func (e *AssignmentEngine) invalidateCache(ctx context.Context, driverID string) {
	if e.driverCache == nil {
		return
	}
	_ = e.driverCache.Invalidate(ctx, driverID)
}
