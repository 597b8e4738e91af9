package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"charter/internal/config"
	"charter/internal/domain"
	"charter/internal/jobs"
	"charter/internal/notify"
	"charter/internal/observability"
	"charter/internal/repository"
)

// QuoteService drives the quote lifecycle: DRAFT -> SUBMITTED ->
// QUOTED -> PAID, with EXPIRED and CANCELLED as the dead ends.
type QuoteService struct {
	quoteRepo       repository.QuoteRepository
	reservationRepo repository.ReservationRepository
	engine          *AssignmentEngine
	queue           jobs.Queue
	notifier        notify.Notifier
	cfg             config.LifecycleConfig
	log             *slog.Logger

	now func() time.Time
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(
	quoteRepo repository.QuoteRepository,
	reservationRepo repository.ReservationRepository,
	engine *AssignmentEngine,
	queue jobs.Queue,
	notifier notify.Notifier,
	cfg config.LifecycleConfig,
	log *slog.Logger,
) *QuoteService {
	return &QuoteService{
		quoteRepo:       quoteRepo,
		reservationRepo: reservationRepo,
		engine:          engine,
		queue:           queue,
		notifier:        notifier,
		cfg:             cfg,
		log:             log,
		now:             time.Now,
	}
}

// CreateQuoteRequest contains the parameters for creating a quote.
type CreateQuoteRequest struct {
	RequesterID string
	Stops       []domain.Stop
	VehicleIDs  []string
	AmenityIDs  []string
}

// CreateQuote creates a new quote in DRAFT state.
func (s *QuoteService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*domain.Quote, error) {
	if len(req.Stops) == 0 {
		return nil, ErrItineraryRequired
	}
	if len(req.VehicleIDs) == 0 {
		return nil, ErrVehiclesRequired
	}

	quote := &domain.Quote{
		ID:          uuid.New().String(),
		RequesterID: req.RequesterID,
		Status:      domain.QuoteStatusDraft,
		Stops:       req.Stops,
		VehicleIDs:  req.VehicleIDs,
		AmenityIDs:  req.AmenityIDs,
		CreatedAt:   s.now(),
	}

	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

// GetQuote retrieves a quote by ID.
func (s *QuoteService) GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error) {
	if quoteID == "" {
		return nil, ErrInvalidQuoteID
	}
	return s.quoteRepo.GetByID(ctx, quoteID)
}

// Submit moves a draft quote toward QUOTED by running driver
// assignment.
//
// With a driver the quote becomes QUOTED and its payment window opens.
// Without one it parks in SUBMITTED; a one-shot retry job and the
// recurring pending sweep keep trying until a driver frees up.
func (s *QuoteService) Submit(ctx context.Context, quoteID string) (*domain.Quote, error) {
	if quoteID == "" {
		return nil, ErrInvalidQuoteID
	}

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.Status != domain.QuoteStatusDraft && quote.Status != domain.QuoteStatusSubmitted {
		return nil, ErrQuoteNotSubmittable
	}

	return s.evaluate(ctx, quote, true)
}

// RecalculateRequest contains the parameters for recalculating a quote.
// Nil slice fields leave the corresponding quote field untouched.
type RecalculateRequest struct {
	QuoteID    string
	Stops      []domain.Stop
	VehicleIDs []string
	AmenityIDs []string
}

// RecalculateResult is the outcome of a recalculation.
type RecalculateResult struct {
	Quote *domain.Quote

	// NeedsVehicleReselection is set when the edited itinerary window
	// collides with existing bookings for the selected vehicles. The
	// quote is left unchanged; the requester must pick other vehicles
	// or dates.
	NeedsVehicleReselection bool
	ConflictingVehicleIDs   []string
}

// Recalculate applies itinerary or selection edits and re-runs
// assignment and pricing. A quote that already reached QUOTED gets a
// fresh payment window.
func (s *QuoteService) Recalculate(ctx context.Context, req RecalculateRequest) (*RecalculateResult, error) {
	if req.QuoteID == "" {
		return nil, ErrInvalidQuoteID
	}

	quote, err := s.quoteRepo.GetByID(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}

	if quote.IsTerminal() || quote.Status == domain.QuoteStatusPaid {
		return nil, ErrQuoteNotRecalculable
	}

	if req.Stops != nil {
		quote.Stops = req.Stops
	}
	if req.VehicleIDs != nil {
		quote.VehicleIDs = req.VehicleIDs
	}
	if req.AmenityIDs != nil {
		quote.AmenityIDs = req.AmenityIDs
	}

	if len(quote.Stops) == 0 {
		return nil, ErrItineraryRequired
	}
	if len(quote.VehicleIDs) == 0 {
		return nil, ErrVehiclesRequired
	}

	conflicts, err := s.engine.ConflictingVehicleIDs(ctx, quote)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		// Nothing is persisted: the stored quote still reflects the
		// last conflict-free state.
		return &RecalculateResult{
			NeedsVehicleReselection: true,
			ConflictingVehicleIDs:   conflicts,
		}, nil
	}

	updated, err := s.evaluate(ctx, quote, quote.Status != domain.QuoteStatusDraft)
	if err != nil {
		return nil, err
	}
	return &RecalculateResult{Quote: updated}, nil
}

// evaluate runs the assignment engine and persists the outcome. When
// promote is false the quote stays in DRAFT even if a driver is found;
// only pricing is refreshed.
func (s *QuoteService) evaluate(ctx context.Context, quote *domain.Quote, promote bool) (*domain.Quote, error) {
	assignment, err := s.engine.Evaluate(ctx, quote)
	if err != nil {
		return nil, err
	}

	quote.Pricing = assignment.Pricing

	if assignment.Driver == nil {
		quote.AssignedDriverID = ""
		quote.ActualDriverRate = 0
		if promote {
			quote.Status = domain.QuoteStatusSubmitted
			quote.QuotedAt = time.Time{}
		}

		if err := s.quoteRepo.Update(ctx, quote); err != nil {
			return nil, err
		}

		if promote {
			// The expiry clock only runs while an offer stands.
			if err := s.queue.Cancel(ctx, jobs.KindQuoteExpiry, quote.ID); err != nil {
				return nil, err
			}
			s.scheduleAssignRetry(ctx, quote.ID)
			s.notifier.Notify(ctx, notify.EventQuotePending, map[string]any{
				"quote_id":     quote.ID,
				"requester_id": quote.RequesterID,
			})
		}
		return quote, nil
	}

	quote.AssignedDriverID = assignment.Driver.ID
	quote.ActualDriverRate = assignment.Driver.HourlyRate
	if promote {
		quote.Status = domain.QuoteStatusQuoted
		quote.QuotedAt = s.now()
	}

	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, err
	}

	if promote {
		if err := s.rescheduleExpiry(ctx, quote); err != nil {
			return nil, err
		}
		_ = s.queue.Cancel(ctx, jobs.KindAssignDriver, quote.ID)

		s.notifier.Notify(ctx, notify.EventQuoteQuoted, map[string]any{
			"quote_id":     quote.ID,
			"requester_id": quote.RequesterID,
			"driver_id":    quote.AssignedDriverID,
			"total":        quote.Pricing.Total,
		})
	}
	return quote, nil
}

// rescheduleExpiry replaces any pending expiry job with one at the
// fresh QuotedAt plus the payment window.
func (s *QuoteService) rescheduleExpiry(ctx context.Context, quote *domain.Quote) error {
	if err := s.queue.Cancel(ctx, jobs.KindQuoteExpiry, quote.ID); err != nil {
		return err
	}

	fireAt := quote.QuotedAt.Add(s.cfg.PaymentWindow)
	_, err := s.queue.Enqueue(ctx, jobs.KindQuoteExpiry, quote.ID, fireAt, jobs.Payload{QuoteID: quote.ID})
	if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
		return err
	}
	return nil
}

// scheduleAssignRetry enqueues a one-shot retry for a quote parked
// without a driver. A retry already in flight is left alone.
func (s *QuoteService) scheduleAssignRetry(ctx context.Context, quoteID string) {
	fireAt := s.now().Add(s.cfg.AssignRetryDelay)
	_, err := s.queue.Enqueue(ctx, jobs.KindAssignDriver, quoteID, fireAt, jobs.Payload{QuoteID: quoteID})
	if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
		s.log.Error("failed to schedule assignment retry", "quote_id", quoteID, "error", err)
	}
}

// MarkPaid settles a quote: PAID status and a CONFIRMED reservation.
//
// Idempotent: a quote that is already PAID returns its existing
// reservation unchanged, so webhook redelivery is harmless.
func (s *QuoteService) MarkPaid(ctx context.Context, quoteID string) (*domain.Reservation, error) {
	if quoteID == "" {
		return nil, ErrInvalidQuoteID
	}

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if quote.Status == domain.QuoteStatusPaid {
		return s.reservationRepo.GetByQuoteID(ctx, quoteID)
	}
	if quote.Status != domain.QuoteStatusQuoted {
		return nil, ErrQuoteNotQuoted
	}

	quote.Status = domain.QuoteStatusPaid
	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, err
	}

	if err := s.queue.Cancel(ctx, jobs.KindQuoteExpiry, quote.ID); err != nil {
		s.log.Error("failed to cancel expiry after payment", "quote_id", quote.ID, "error", err)
	}

	reservation := &domain.Reservation{
		ID:               uuid.New().String(),
		QuoteID:          quote.ID,
		AssignedDriverID: quote.AssignedDriverID,
		Status:           domain.ReservationStatusConfirmed,
		CreatedAt:        s.now(),
	}
	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.EventQuotePaid, map[string]any{
		"quote_id":       quote.ID,
		"requester_id":   quote.RequesterID,
		"driver_id":      quote.AssignedDriverID,
		"reservation_id": reservation.ID,
	})
	return reservation, nil
}

// HandleExpiry is the quote-expiry job handler.
//
// Redelivery-safe: a quote that is gone, already paid, or already
// expired is a no-op, never an error.
func (s *QuoteService) HandleExpiry(ctx context.Context, payload jobs.Payload) error {
	quote, err := s.quoteRepo.GetByID(ctx, payload.QuoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if quote.Status != domain.QuoteStatusQuoted {
		return nil
	}

	quote.Status = domain.QuoteStatusExpired
	quote.AssignedDriverID = ""
	quote.ActualDriverRate = 0

	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return err
	}

	observability.QuotesExpired.Inc()
	s.log.Info("quote expired unpaid", "quote_id", quote.ID)

	s.notifier.Notify(ctx, notify.EventQuoteExpired, map[string]any{
		"quote_id":     quote.ID,
		"requester_id": quote.RequesterID,
	})
	return nil
}

// HandleAssignRetry is the assign-driver job handler: one more
// assignment attempt for a quote parked without a driver.
func (s *QuoteService) HandleAssignRetry(ctx context.Context, payload jobs.Payload) error {
	quote, err := s.quoteRepo.GetByID(ctx, payload.QuoteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if quote.Status != domain.QuoteStatusSubmitted {
		return nil
	}

	_, err = s.evaluate(ctx, quote, true)
	if errors.Is(err, ErrNoPricingConfig) {
		// Retrying cannot fix a missing configuration.
		s.log.Error("assignment retry blocked", "quote_id", quote.ID, "error", err)
		return nil
	}
	return err
}

// SweepPendingQuotes is the recurring process-pending-quotes handler.
// It retries assignment for every quote still waiting on a driver.
func (s *QuoteService) SweepPendingQuotes(ctx context.Context, _ jobs.Payload) error {
	pending, err := s.quoteRepo.ListByStatus(ctx, domain.QuoteStatusSubmitted)
	if err != nil {
		return err
	}

	for _, quote := range pending {
		if _, err := s.evaluate(ctx, quote, true); err != nil {
			if errors.Is(err, ErrNoPricingConfig) {
				s.log.Error("pending sweep blocked", "error", err)
				return nil
			}
			s.log.Error("pending sweep failed for quote", "quote_id", quote.ID, "error", err)
		}
	}
	return nil
}
