package models

// FareBreakdown is the full quote produced by the pricing engine. All amounts
// are in whole currency units except the multipliers.
type FareBreakdown struct {
	BaseFare        float64      `json:"base_fare" bson:"base_fare"`
	DistanceFare    float64      `json:"distance_fare" bson:"distance_fare"`
	CargoMultiplier float64      `json:"cargo_multiplier" bson:"cargo_multiplier"`
	SurgeMultiplier float64      `json:"surge_multiplier" bson:"surge_multiplier"`
	AddOns          AddOnCharges `json:"add_ons" bson:"add_ons"`
	Discount        float64      `json:"discount" bson:"discount"`
	Total           float64      `json:"total" bson:"total"`
	Currency        string       `json:"currency" bson:"currency" default:"INR"`
}

type AddOnCharges struct {
	Express   float64 `json:"express" bson:"express"`
	Fragile   float64 `json:"fragile" bson:"fragile"`
	Insurance float64 `json:"insurance" bson:"insurance"`
}

func (a AddOnCharges) Sum() float64 {
	return a.Express + a.Fragile + a.Insurance
}
