package service

import (
	"errors"
	"fmt"
)

var (
	// ErrItineraryRequired is returned when a quote has no stops.
	ErrItineraryRequired = errors.New("quote has no itinerary")

	// ErrVehiclesRequired is returned when a quote selects no vehicles.
	ErrVehiclesRequired = errors.New("quote has no vehicles")

	// ErrInvalidQuoteID is returned when quote ID is empty.
	ErrInvalidQuoteID = errors.New("invalid quote id")

	// ErrInvalidReservationID is returned when reservation ID is empty.
	ErrInvalidReservationID = errors.New("invalid reservation id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrNoPricingConfig is returned when no active pricing
	// configuration exists. Assignment cannot proceed without one.
	ErrNoPricingConfig = errors.New("no active pricing configuration")

	// ErrQuoteNotSubmittable is returned when submitting a quote that
	// is not in DRAFT or SUBMITTED state.
	ErrQuoteNotSubmittable = errors.New("quote cannot be submitted in current state")

	// ErrQuoteNotRecalculable is returned when recalculating a quote
	// that is paid, expired, or cancelled.
	ErrQuoteNotRecalculable = errors.New("quote cannot be recalculated in current state")

	// ErrQuoteNotQuoted is returned when paying a quote that is not in
	// QUOTED state.
	ErrQuoteNotQuoted = errors.New("quote is not awaiting payment")

	// ErrTripAlreadyStarted is returned when starting an already
	// started trip.
	ErrTripAlreadyStarted = errors.New("trip already started")

	// ErrTripNotStarted is returned when acting on a trip that hasn't
	// started.
	ErrTripNotStarted = errors.New("trip not started")

	// ErrTripAlreadyEnded is returned when ending a completed trip.
	ErrTripAlreadyEnded = errors.New("trip already ended")

	// ErrReservationClosed is returned when acting on a cancelled or
	// refunded reservation.
	ErrReservationClosed = errors.New("reservation is closed")

	// ErrDriverHasActiveTrip is returned when the driver already has an
	// active trip.
	ErrDriverHasActiveTrip = errors.New("driver already has an active trip")

	// ErrInvalidLocation is returned when location coordinates are
	// out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrLocationThrottled is returned when a location update arrives
	// before the throttle interval has elapsed.
	ErrLocationThrottled = errors.New("location update throttled")
)

// UnpaidChargesError blocks trip completion while charges remain
// unsettled.
type UnpaidChargesError struct {
	Amount   float64
	Currency string
}

func (e *UnpaidChargesError) Error() string {
	return fmt.Sprintf("reservation has unpaid charges: %.2f %s", e.Amount, e.Currency)
}
