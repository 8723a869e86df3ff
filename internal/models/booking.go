package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string
type CargoSize string
type PaymentStatus string

const (
	BookingStatusPending            BookingStatus = "pending"
	BookingStatusDriverAssigned     BookingStatus = "driver_assigned"
	BookingStatusDriverArrived      BookingStatus = "driver_arrived"
	BookingStatusPickedUp           BookingStatus = "picked_up"
	BookingStatusInTransit          BookingStatus = "in_transit"
	BookingStatusReachedDestination BookingStatus = "reached_destination"
	BookingStatusDelivered          BookingStatus = "delivered"
	BookingStatusCompleted          BookingStatus = "completed"
	BookingStatusCancelled          BookingStatus = "cancelled"
	BookingStatusFailed             BookingStatus = "failed"

	CargoSizeXS CargoSize = "xs"
	CargoSizeS  CargoSize = "s"
	CargoSizeM  CargoSize = "m"
	CargoSizeL  CargoSize = "l"
	CargoSizeXL CargoSize = "xl"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Booking struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BookingCode  string              `json:"booking_code" bson:"booking_code" validate:"required"`
	UserID       primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	DriverID     *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	VehicleID    *primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`
	Pickup       Location            `json:"pickup" bson:"pickup" validate:"required"`
	Drop         Location            `json:"drop" bson:"drop" validate:"required"`
	DistanceKM   float64             `json:"distance_km" bson:"distance_km"`
	Cargo        CargoDetails        `json:"cargo" bson:"cargo" validate:"required"`
	Pricing      *FareBreakdown      `json:"pricing" bson:"pricing"`
	Payment      PaymentInfo         `json:"payment" bson:"payment"`
	OTP          *BookingOTP         `json:"otp" bson:"otp"`
	PODID        *primitive.ObjectID `json:"pod_id" bson:"pod_id"`
	Status       BookingStatus       `json:"status" bson:"status" default:"pending"`
	Timeline     []TimelineEntry     `json:"timeline" bson:"timeline"`
	Cancellation *Cancellation       `json:"cancellation" bson:"cancellation"`
	Rating       *BookingRating      `json:"rating" bson:"rating"`
	// Guards the one-time driver earnings credit on completion.
	EarningsCredited bool       `json:"earnings_credited" bson:"earnings_credited" default:"false"`
	ScheduledAt      *time.Time `json:"scheduled_at" bson:"scheduled_at"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

type CargoDetails struct {
	Size        CargoSize `json:"size" bson:"size" validate:"required"`
	WeightKG    float64   `json:"weight_kg" bson:"weight_kg"`
	Fragile     bool      `json:"fragile" bson:"fragile" default:"false"`
	Description string    `json:"description" bson:"description"`
}

// TimelineEntry is an append-only audit record; entries are never edited or
// removed, and the last entry always mirrors the booking status.
type TimelineEntry struct {
	Status    BookingStatus `json:"status" bson:"status"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Location  *Location     `json:"location" bson:"location"`
	Note      string        `json:"note" bson:"note"`
}

type BookingOTP struct {
	Pickup string `json:"pickup" bson:"pickup"`
	Drop   string `json:"drop" bson:"drop"`
}

type PaymentInfo struct {
	Method    string        `json:"method" bson:"method"`
	Status    PaymentStatus `json:"status" bson:"status" default:"pending"`
	SettledAt *time.Time    `json:"settled_at" bson:"settled_at"`
	Reference string        `json:"reference" bson:"reference"`
}

type Cancellation struct {
	CancelledBy  string    `json:"cancelled_by" bson:"cancelled_by"` // user, driver, admin, system
	Reason       string    `json:"reason" bson:"reason"`
	RefundAmount float64   `json:"refund_amount" bson:"refund_amount"`
	CancelledAt  time.Time `json:"cancelled_at" bson:"cancelled_at"`
}

type BookingRating struct {
	Score   float64   `json:"score" bson:"score" validate:"min=1,max=5"`
	Comment string    `json:"comment" bson:"comment"`
	RatedAt time.Time `json:"rated_at" bson:"rated_at"`
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusFailed
}

func (b *Booking) IsActive() bool {
	return !b.Status.IsTerminal()
}

func ValidCargoSize(size CargoSize) bool {
	switch size {
	case CargoSizeXS, CargoSizeS, CargoSizeM, CargoSizeL, CargoSizeXL:
		return true
	}
	return false
}
