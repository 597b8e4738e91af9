package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusOnTrip    DriverStatus = "ON_TRIP"
	DriverStatusOffline   DriverStatus = "OFFLINE"
	DriverStatusSuspended DriverStatus = "SUSPENDED"
	DriverStatusBlocked   DriverStatus = "BLOCKED"
)

// Driver represents a charter driver.
//
// LastAssignedAt is zero for a driver who has never received an
// assignment; it is updated only on a genuinely new assignment, never
// when a recalculation keeps the same driver.
type Driver struct {
	ID             string
	Name           string
	Phone          string
	Status         DriverStatus
	HourlyRate     float64
	LastAssignedAt time.Time
	TotalEarnings  float64
	Onboarded      bool
}

// Assignable reports whether the driver may receive a new assignment.
func (d *Driver) Assignable() bool {
	return d.Status == DriverStatusAvailable && d.Onboarded
}
