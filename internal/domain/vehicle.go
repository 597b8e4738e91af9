package domain

// Vehicle is a charterable vehicle.
type Vehicle struct {
	ID        string
	Name      string
	Class     string
	PerKmRate float64
	Seats     int
}

// Amenity is an optional extra billed per booking.
type Amenity struct {
	ID   string
	Name string
	Fee  float64
}

// PricingConfig is the active pricing configuration. Assignment cannot
// proceed without one; its absence is fatal, not recoverable.
type PricingConfig struct {
	ID                string
	BaseFare          float64
	NightChargeRate   float64
	TaxRate           float64
	DefaultHourlyRate float64
	NightStartHour    int
	NightEndHour      int
	Active            bool
}
