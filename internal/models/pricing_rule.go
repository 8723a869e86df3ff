package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PricingRule is versioned pricing configuration owned by pricing
// administration. One rule per vehicle type, or the wildcard "all".
type PricingRule struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleType string             `json:"vehicle_type" bson:"vehicle_type" validate:"required"` // exact type or "all"
	BaseFare    float64            `json:"base_fare" bson:"base_fare" validate:"required"`
	PerKMRate   float64            `json:"per_km_rate" bson:"per_km_rate" validate:"required"`

	CargoMultipliers map[CargoSize]float64 `json:"cargo_multipliers" bson:"cargo_multipliers"`

	PeakWindows []PeakWindow `json:"peak_windows" bson:"peak_windows"`

	LowSupplyThreshold   int64   `json:"low_supply_threshold" bson:"low_supply_threshold"`
	LowSupplyMultiplier  float64 `json:"low_supply_multiplier" bson:"low_supply_multiplier"`
	HighDemandThreshold  int64   `json:"high_demand_threshold" bson:"high_demand_threshold"`
	HighDemandMultiplier float64 `json:"high_demand_multiplier" bson:"high_demand_multiplier"`

	WeatherMultipliers map[string]float64 `json:"weather_multipliers" bson:"weather_multipliers"`

	ExpressCharge    float64 `json:"express_charge" bson:"express_charge"`
	FragileCharge    float64 `json:"fragile_charge" bson:"fragile_charge"`
	InsurancePercent float64 `json:"insurance_percent" bson:"insurance_percent"`

	MinimumFare float64 `json:"minimum_fare" bson:"minimum_fare"`
	MaximumFare float64 `json:"maximum_fare" bson:"maximum_fare"`

	// Share of the final fare credited to the driver on completion.
	DriverSharePercent float64 `json:"driver_share_percent" bson:"driver_share_percent"`

	Currency      string     `json:"currency" bson:"currency" default:"INR"`
	IsActive      bool       `json:"is_active" bson:"is_active" default:"true"`
	EffectiveFrom time.Time  `json:"effective_from" bson:"effective_from"`
	EffectiveUntil *time.Time `json:"effective_until" bson:"effective_until"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// PeakWindow is a local-time window, "HH:MM" inclusive start, exclusive end.
type PeakWindow struct {
	Start      string  `json:"start" bson:"start"`
	End        string  `json:"end" bson:"end"`
	Multiplier float64 `json:"multiplier" bson:"multiplier"`
}

// Contains reports whether t's local clock time falls inside the window.
func (w PeakWindow) Contains(t time.Time) bool {
	clock := t.Format("15:04")
	if w.Start <= w.End {
		return clock >= w.Start && clock < w.End
	}
	// Window wraps midnight.
	return clock >= w.Start || clock < w.End
}

func (r *PricingRule) CargoMultiplier(size CargoSize) float64 {
	if m, ok := r.CargoMultipliers[size]; ok {
		return m
	}
	return 1.0
}
