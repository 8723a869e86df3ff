package validators

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuoteRequest struct {
	DistanceKM  float64 `json:"distance_km" validate:"omitempty,min=0,max=500"`
	Pickup      *LocationRequest `json:"pickup" validate:"omitempty"`
	Drop        *LocationRequest `json:"drop" validate:"omitempty"`
	CargoSize   string  `json:"cargo_size" validate:"required,cargo_size"`
	VehicleType string  `json:"vehicle_type" validate:"omitempty,max=32"`
	Express     bool    `json:"express"`
	Fragile     bool    `json:"fragile"`
	Insurance   bool    `json:"insurance"`
	PromoCode   string  `json:"promo_code" validate:"omitempty,max=20"`
}

type LocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Address   string  `json:"address" validate:"omitempty,max=255"`
}

type CreateBookingRequest struct {
	Pickup        LocationRequest `json:"pickup" validate:"required"`
	Drop          LocationRequest `json:"drop" validate:"required"`
	CargoSize     string          `json:"cargo_size" validate:"required,cargo_size"`
	WeightKG      float64         `json:"weight_kg" validate:"omitempty,min=0,max=2000"`
	FragileCargo  bool            `json:"fragile_cargo"`
	Description   string          `json:"description" validate:"omitempty,max=500"`
	VehicleType   string          `json:"vehicle_type" validate:"omitempty,max=32"`
	Express       bool            `json:"express"`
	Insurance     bool            `json:"insurance"`
	PromoCode     string          `json:"promo_code" validate:"omitempty,max=20"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card wallet upi"`
	ScheduledAt   *time.Time      `json:"scheduled_at"`
}

type TransitionRequest struct {
	Status   string           `json:"status" validate:"required,oneof=driver_arrived picked_up in_transit reached_destination delivered completed"`
	Location *LocationRequest `json:"location"`
	Note     string           `json:"note" validate:"omitempty,max=255"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type ConfirmPaymentRequest struct {
	Reference string `json:"reference" validate:"required,max=128"`
}

type RateBookingRequest struct {
	Score   float64 `json:"score" validate:"required,min=1,max=5"`
	Comment string  `json:"comment" validate:"omitempty,max=500"`
}

type ManualAssignRequest struct {
	DriverID primitive.ObjectID `json:"driver_id" validate:"required,object_id"`
}

type DispatchFailRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}
