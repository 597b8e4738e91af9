package domain

import "time"

// QuoteStatus represents the current status of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "DRAFT"
	QuoteStatusSubmitted QuoteStatus = "SUBMITTED"
	QuoteStatusQuoted    QuoteStatus = "QUOTED"
	QuoteStatusPaid      QuoteStatus = "PAID"
	QuoteStatusExpired   QuoteStatus = "EXPIRED"
	QuoteStatusCancelled QuoteStatus = "CANCELLED"
)

// Stop is a single itinerary step with scheduled arrival and, for
// intermediate stops, scheduled departure. DepartAt may be zero for the
// final stop.
type Stop struct {
	Name     string
	Lat      float64
	Lng      float64
	ArriveAt time.Time
	DepartAt time.Time
}

// PricingBreakdown is the full fare decomposition for a quote. It is
// recomputed in full on every (re)assignment so it is never stale
// relative to the assigned driver.
type PricingBreakdown struct {
	BaseFare      float64
	DistanceFare  float64
	NightCharge   float64
	AmenityCharge float64
	DriverCharge  float64
	Tax           float64
	Total         float64
}

// Quote represents a priced, not-yet-paid charter offer.
//
// AssignedDriverID is set iff Status is QUOTED or PAID. QuotedAt is set
// iff the quote has ever reached QUOTED; the payment window runs from
// QuotedAt.
type Quote struct {
	ID               string
	RequesterID      string
	Status           QuoteStatus
	Stops            []Stop
	VehicleIDs       []string
	AmenityIDs       []string
	AssignedDriverID string
	ActualDriverRate float64
	Pricing          PricingBreakdown
	QuotedAt         time.Time
	CreatedAt        time.Time
}

// Window returns the itinerary date window: [min(arrival), max(arrival
// or departure)] across all stops. Returns zero times for an empty
// itinerary.
func (q *Quote) Window() (start, end time.Time) {
	for _, s := range q.Stops {
		if start.IsZero() || s.ArriveAt.Before(start) {
			start = s.ArriveAt
		}
		if s.ArriveAt.After(end) {
			end = s.ArriveAt
		}
		if !s.DepartAt.IsZero() && s.DepartAt.After(end) {
			end = s.DepartAt
		}
	}
	return start, end
}

// DurationHours returns the total itinerary duration in hours.
func (q *Quote) DurationHours() float64 {
	start, end := q.Window()
	if start.IsZero() || !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours()
}

// IsTerminal reports whether the quote can no longer move forward.
func (q *Quote) IsTerminal() bool {
	return q.Status == QuoteStatusPaid || q.Status == QuoteStatusExpired || q.Status == QuoteStatusCancelled
}
