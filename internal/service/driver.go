package service

import (
	"context"

	"github.com/google/uuid"

	"charter/internal/domain"
	"charter/internal/redis"
	"charter/internal/repository"
)

// DriverService handles driver profile operations.
type DriverService struct {
	driverRepo      repository.DriverRepository
	reservationRepo repository.ReservationRepository
	driverCache     *redis.DriverCache
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	reservationRepo repository.ReservationRepository,
	driverCache *redis.DriverCache,
) *DriverService {
	return &DriverService{
		driverRepo:      driverRepo,
		reservationRepo: reservationRepo,
		driverCache:     driverCache,
	}
}

// CreateDriverRequest contains the parameters for registering a driver.
type CreateDriverRequest struct {
	Name       string
	Phone      string
	HourlyRate float64
	Onboarded  bool
}

// CreateDriver registers a new driver, OFFLINE until they go available.
func (s *DriverService) CreateDriver(ctx context.Context, req CreateDriverRequest) (*domain.Driver, error) {
	driver := &domain.Driver{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Phone:      req.Phone,
		Status:     domain.DriverStatusOffline,
		HourlyRate: req.HourlyRate,
		Onboarded:  req.Onboarded,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// GetAllDrivers retrieves all drivers.
func (s *DriverService) GetAllDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// SetAvailability flips a driver between AVAILABLE and OFFLINE.
//
// A driver with a trip in progress cannot change availability; the
// lifecycle (trip completion plus cooldown) owns their status until the
// trip closes out.
func (s *DriverService) SetAvailability(ctx context.Context, driverID string, available bool) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	active, err := s.reservationRepo.GetActiveByDriverID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrDriverHasActiveTrip
	}

	status := domain.DriverStatusOffline
	if available {
		status = domain.DriverStatusAvailable
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, status); err != nil {
		return nil, err
	}
	driver.Status = status

	if s.driverCache != nil {
		_ = s.driverCache.Invalidate(ctx, driverID)
	}
	return driver, nil
}
