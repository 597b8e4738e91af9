package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"charter/internal/domain"
	"charter/internal/notify"
	"charter/internal/redis"
	"charter/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK QUOTE REPOSITORY
// ──────────────────────────────────────────────

// MockQuoteRepository is a mock implementation of QuoteRepository.
type MockQuoteRepository struct {
	mu     sync.RWMutex
	quotes map[string]*domain.Quote

	// Conflicts returned by the booked-window queries.
	BookedDrivers  []string
	BookedVehicles []string

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	UpdateError error
}

// NewMockQuoteRepository creates a new mock quote repository.
func NewMockQuoteRepository() *MockQuoteRepository {
	return &MockQuoteRepository{quotes: make(map[string]*domain.Quote)}
}

// AddQuote adds a quote to the mock repository.
func (m *MockQuoteRepository) AddQuote(quote *domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[quote.ID] = quote
}

// GetQuote returns a quote for test assertions.
func (m *MockQuoteRepository) GetQuote(id string) *domain.Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quotes[id]
}

func (m *MockQuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[quote.ID] = quote
	return nil
}

func (m *MockQuoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quote, ok := m.quotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *quote
	return &copy, nil
}

func (m *MockQuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[quote.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *quote
	m.quotes[quote.ID] = &copy
	return nil
}

func (m *MockQuoteRepository) ListByStatus(ctx context.Context, status domain.QuoteStatus) ([]*domain.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Quote
	for _, q := range m.quotes {
		if q.Status == status {
			copy := *q
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockQuoteRepository) BookedDriverIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := append([]string(nil), m.BookedDrivers...)
	for _, q := range m.quotes {
		if q.ID == excludeQuoteID || q.AssignedDriverID == "" {
			continue
		}
		if quoteBooksWindow(q, start, end) {
			ids = append(ids, q.AssignedDriverID)
		}
	}
	return ids, nil
}

func (m *MockQuoteRepository) BookedVehicleIDs(ctx context.Context, start, end time.Time, excludeQuoteID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := append([]string(nil), m.BookedVehicles...)
	for _, q := range m.quotes {
		if q.ID == excludeQuoteID {
			continue
		}
		if quoteBooksWindow(q, start, end) {
			ids = append(ids, q.VehicleIDs...)
		}
	}
	return ids, nil
}

// quoteBooksWindow mirrors the booked-set overlap predicate: committed
// statuses only, itinerary windows intersecting [start, end].
func quoteBooksWindow(q *domain.Quote, start, end time.Time) bool {
	if q.Status != domain.QuoteStatusQuoted && q.Status != domain.QuoteStatusPaid {
		return false
	}
	qStart, qEnd := q.Window()
	if qStart.IsZero() {
		return false
	}
	return !qStart.After(end) && !qEnd.Before(start)
}

// ──────────────────────────────────────────────
// MOCK RESERVATION REPOSITORY
// ──────────────────────────────────────────────

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	UpdateError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository() *MockReservationRepository {
	return &MockReservationRepository{reservations: make(map[string]*domain.Reservation)}
}

// AddReservation adds a reservation to the mock repository.
func (m *MockReservationRepository) AddReservation(reservation *domain.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[reservation.ID] = reservation
}

// GetReservation returns a reservation for test assertions.
func (m *MockReservationRepository) GetReservation(id string) *domain.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reservations[id]
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[reservation.ID] = reservation
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reservation, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *reservation
	return &copy, nil
}

func (m *MockReservationRepository) Update(ctx context.Context, reservation *domain.Reservation) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[reservation.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *reservation
	m.reservations[reservation.ID] = &copy
	return nil
}

func (m *MockReservationRepository) GetByQuoteID(ctx context.Context, quoteID string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reservations {
		if r.QuoteID == quoteID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockReservationRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reservations {
		if r.AssignedDriverID == driverID && r.IsActive() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockReservationRepository) LatestCompletedByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Reservation
	for _, r := range m.reservations {
		if r.AssignedDriverID != driverID || r.Status != domain.ReservationStatusCompleted {
			continue
		}
		if latest == nil || r.CompletedAt.After(latest.CompletedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	copy := *latest
	return &copy, nil
}

func (m *MockReservationRepository) ListActive(ctx context.Context) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Reservation
	for _, r := range m.reservations {
		if r.IsActive() {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	UpdateStatusCallCount      int32
	SetLastAssignedAtCallCount int32

	// Error injection
	UpdateStatusError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[string]*domain.Driver)}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

// GetDriver returns a driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) ListAssignable(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if d.Assignable() {
			copy := *d
			result = append(result, &copy)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.LastAssignedAt.IsZero() != b.LastAssignedAt.IsZero() {
			return a.LastAssignedAt.IsZero()
		}
		if !a.LastAssignedAt.Equal(b.LastAssignedAt) {
			return a.LastAssignedAt.Before(b.LastAssignedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (m *MockDriverRepository) ListByStatus(ctx context.Context, status domain.DriverStatus) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Driver
	for _, d := range m.drivers {
		if d.Status == status {
			copy := *d
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

func (m *MockDriverRepository) SetLastAssignedAt(ctx context.Context, id string, at time.Time) error {
	atomic.AddInt32(&m.SetLastAssignedAtCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.LastAssignedAt = at
	return nil
}

func (m *MockDriverRepository) IncrementEarnings(ctx context.Context, id string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.TotalEarnings += amount
	return nil
}

// ──────────────────────────────────────────────
// MOCK EARNINGS REPOSITORY
// ──────────────────────────────────────────────

// MockEarningsRepository is a mock implementation of EarningsRepository.
type MockEarningsRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.DriverPayment // keyed by reservation id

	CreateCallCount int32
}

// NewMockEarningsRepository creates a new mock earnings repository.
func NewMockEarningsRepository() *MockEarningsRepository {
	return &MockEarningsRepository{payments: make(map[string]*domain.DriverPayment)}
}

func (m *MockEarningsRepository) Create(ctx context.Context, payment *domain.DriverPayment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.ReservationID]; ok {
		return repository.ErrDuplicate
	}
	m.payments[payment.ReservationID] = payment
	return nil
}

func (m *MockEarningsRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.DriverPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[reservationID]
	if !ok {
		return nil, nil
	}
	copy := *payment
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK CATALOG REPOSITORIES
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	Vehicles map[string]domain.Vehicle
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{Vehicles: make(map[string]domain.Vehicle)}
}

func (m *MockVehicleRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Vehicle, error) {
	var result []domain.Vehicle
	for _, id := range ids {
		if v, ok := m.Vehicles[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

// MockAmenityRepository is a mock implementation of AmenityRepository.
type MockAmenityRepository struct {
	Amenities map[string]domain.Amenity
}

// NewMockAmenityRepository creates a new mock amenity repository.
func NewMockAmenityRepository() *MockAmenityRepository {
	return &MockAmenityRepository{Amenities: make(map[string]domain.Amenity)}
}

func (m *MockAmenityRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Amenity, error) {
	var result []domain.Amenity
	for _, id := range ids {
		if a, ok := m.Amenities[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

// MockPricingConfigRepository is a mock implementation of PricingConfigRepository.
type MockPricingConfigRepository struct {
	Config *domain.PricingConfig
}

func (m *MockPricingConfigRepository) GetActive(ctx context.Context) (*domain.PricingConfig, error) {
	if m.Config == nil {
		return nil, repository.ErrNotFound
	}
	copy := *m.Config
	return &copy, nil
}

// MockChargeRepository is a mock implementation of ChargeRepository.
type MockChargeRepository struct {
	Unpaid   float64
	Currency string
}

func (m *MockChargeRepository) UnpaidTotalByReservation(ctx context.Context, reservationID string) (float64, string, error) {
	return m.Unpaid, m.Currency, nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockThrottleStore is an in-memory throttle with an injectable clock.
type MockThrottleStore struct {
	mu      sync.Mutex
	markers map[string]time.Time // key -> marker expiry

	Now func() time.Time
}

// NewMockThrottleStore creates a new mock throttle store.
func NewMockThrottleStore() *MockThrottleStore {
	return &MockThrottleStore{
		markers: make(map[string]time.Time),
		Now:     time.Now,
	}
}

func (m *MockThrottleStore) TryMark(ctx context.Context, driverID, reservationID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := driverID + ":" + reservationID
	now := m.Now()
	if expiry, ok := m.markers[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.markers[key] = now.Add(ttl)
	return true, nil
}

func (m *MockThrottleStore) Clear(ctx context.Context, driverID, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, driverID+":"+reservationID)
	return nil
}

// MockTripLocationStore is an in-memory trip location store.
type MockTripLocationStore struct {
	mu        sync.Mutex
	locations map[string]*redis.TripLocation

	DeleteCallCount int32
}

// NewMockTripLocationStore creates a new mock location store.
func NewMockTripLocationStore() *MockTripLocationStore {
	return &MockTripLocationStore{locations: make(map[string]*redis.TripLocation)}
}

func (m *MockTripLocationStore) Set(ctx context.Context, loc *redis.TripLocation, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *loc
	m.locations[loc.ReservationID] = &copy
	return nil
}

func (m *MockTripLocationStore) Get(ctx context.Context, reservationID string) (*redis.TripLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[reservationID]
	if !ok {
		return nil, nil
	}
	copy := *loc
	return &copy, nil
}

func (m *MockTripLocationStore) Delete(ctx context.Context, reservationID string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, reservationID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records delivered events for assertions.
type MockNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, event notify.Event, payload map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns the delivered events in order.
func (m *MockNotifier) Events() []notify.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Event(nil), m.events...)
}

// Count returns how many times the event was delivered.
func (m *MockNotifier) Count(event notify.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}
