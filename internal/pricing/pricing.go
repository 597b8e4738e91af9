// Package pricing computes the fare breakdown for a charter quote.
// Every function here is pure: the same inputs always produce the same
// breakdown, so pricing can be recomputed on any (re)assignment without
// drifting from what the customer was shown.
package pricing

import (
	"math"

	"charter/internal/domain"
)

const earthRadiusKm = 6371.0

// Inputs bundles everything the breakdown depends on.
type Inputs struct {
	Stops      []domain.Stop
	Vehicles   []domain.Vehicle
	Amenities  []domain.Amenity
	Config     domain.PricingConfig
	HourlyRate float64 // the assigned driver's rate, or the config default for estimates
}

// Compute returns the full fare breakdown.
//
// DriverCharge = total itinerary duration in hours * hourly rate.
// DistanceFare sums each vehicle's per-km rate over the route distance.
// NightCharge applies the configured rate on top of the base fare when
// any stop's arrival falls inside the configured night hours.
func Compute(in Inputs) domain.PricingBreakdown {
	b := domain.PricingBreakdown{
		BaseFare: in.Config.BaseFare,
	}

	distanceKm := routeDistanceKm(in.Stops)
	for _, v := range in.Vehicles {
		b.DistanceFare += distanceKm * v.PerKmRate
	}

	if touchesNight(in.Stops, in.Config.NightStartHour, in.Config.NightEndHour) {
		b.NightCharge = in.Config.BaseFare * in.Config.NightChargeRate
	}

	for _, a := range in.Amenities {
		b.AmenityCharge += a.Fee
	}

	b.DriverCharge = durationHours(in.Stops) * in.HourlyRate

	subtotal := b.BaseFare + b.DistanceFare + b.NightCharge + b.AmenityCharge + b.DriverCharge
	b.Tax = round2(subtotal * in.Config.TaxRate)
	b.Total = round2(subtotal + b.Tax)

	b.BaseFare = round2(b.BaseFare)
	b.DistanceFare = round2(b.DistanceFare)
	b.NightCharge = round2(b.NightCharge)
	b.AmenityCharge = round2(b.AmenityCharge)
	b.DriverCharge = round2(b.DriverCharge)

	return b
}

func durationHours(stops []domain.Stop) float64 {
	q := domain.Quote{Stops: stops}
	return q.DurationHours()
}

// routeDistanceKm sums the great-circle distance between consecutive stops.
func routeDistanceKm(stops []domain.Stop) float64 {
	var total float64
	for i := 1; i < len(stops); i++ {
		total += haversineKm(stops[i-1].Lat, stops[i-1].Lng, stops[i].Lat, stops[i].Lng)
	}
	return total
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// touchesNight reports whether any arrival falls inside [startHour, endHour),
// a window that may wrap past midnight (e.g. 22 -> 6).
func touchesNight(stops []domain.Stop, startHour, endHour int) bool {
	if startHour == endHour {
		return false
	}
	for _, s := range stops {
		h := s.ArriveAt.Hour()
		if startHour < endHour {
			if h >= startHour && h < endHour {
				return true
			}
		} else if h >= startHour || h < endHour {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
