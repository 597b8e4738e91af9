package domain

import "time"

// ReservationStatus represents the operational status of a reservation.
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusRefunded  ReservationStatus = "REFUNDED"
)

// Reservation is the paid, operational trip record created from a quote.
//
// CompletedAt implies StartedAt. At most one reservation per driver may
// be started and not completed at any time.
type Reservation struct {
	ID               string
	QuoteID          string
	AssignedDriverID string
	Status           ReservationStatus
	StartedAt        time.Time
	CompletedAt      time.Time
	CreatedAt        time.Time
}

// IsTerminal reports whether the reservation is in a status that must
// never be overwritten.
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusCancelled || r.Status == ReservationStatusRefunded
}

// IsActive reports whether the trip is started and not yet completed.
func (r *Reservation) IsActive() bool {
	return !r.StartedAt.IsZero() && r.CompletedAt.IsZero()
}
