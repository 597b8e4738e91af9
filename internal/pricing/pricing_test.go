package pricing

import (
	"testing"
	"time"

	"charter/internal/domain"
)

func baseConfig() domain.PricingConfig {
	return domain.PricingConfig{
		ID:                "cfg-1",
		BaseFare:          100,
		NightChargeRate:   0.25,
		TaxRate:           0.10,
		DefaultHourlyRate: 400,
		NightStartHour:    22,
		NightEndHour:      6,
		Active:            true,
	}
}

func dayStops(t0 time.Time) []domain.Stop {
	return []domain.Stop{
		{Name: "pickup", Lat: 12.97, Lng: 77.59, ArriveAt: t0},
		{Name: "drop", Lat: 12.97, Lng: 77.59, ArriveAt: t0.Add(3 * time.Hour)},
	}
}

func TestCompute_DriverChargeFromItineraryDuration(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := Compute(Inputs{
		Stops:      dayStops(t0),
		Config:     baseConfig(),
		HourlyRate: 500,
	})

	if b.DriverCharge != 1500 {
		t.Errorf("expected driver charge 1500 for 3h at 500/h, got %v", b.DriverCharge)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := Inputs{
		Stops:      dayStops(t0),
		Vehicles:   []domain.Vehicle{{ID: "v1", PerKmRate: 12}},
		Amenities:  []domain.Amenity{{ID: "a1", Fee: 50}},
		Config:     baseConfig(),
		HourlyRate: 500,
	}

	first := Compute(in)
	second := Compute(in)
	if first != second {
		t.Errorf("breakdown not reproducible: %+v vs %+v", first, second)
	}
}

func TestCompute_NightChargeApplied(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	b := Compute(Inputs{
		Stops:      dayStops(t0),
		Config:     baseConfig(),
		HourlyRate: 500,
	})

	if b.NightCharge != 25 {
		t.Errorf("expected night charge 25 (25%% of base 100), got %v", b.NightCharge)
	}
}

func TestCompute_NoNightChargeDuringDay(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := Compute(Inputs{
		Stops:      dayStops(t0),
		Config:     baseConfig(),
		HourlyRate: 500,
	})

	if b.NightCharge != 0 {
		t.Errorf("expected no night charge at 09:00, got %v", b.NightCharge)
	}
}

func TestCompute_TotalIncludesTax(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := Compute(Inputs{
		Stops:      dayStops(t0),
		Amenities:  []domain.Amenity{{ID: "a1", Fee: 50}},
		Config:     baseConfig(),
		HourlyRate: 500,
	})

	// base 100 + amenities 50 + driver 1500 = 1650; tax 165; total 1815.
	if b.Tax != 165 {
		t.Errorf("expected tax 165, got %v", b.Tax)
	}
	if b.Total != 1815 {
		t.Errorf("expected total 1815, got %v", b.Total)
	}
}

func TestRouteDistance_ZeroForSinglePoint(t *testing.T) {
	t.Parallel()

	if d := routeDistanceKm([]domain.Stop{{Lat: 10, Lng: 10}}); d != 0 {
		t.Errorf("expected zero distance for single stop, got %v", d)
	}
}
