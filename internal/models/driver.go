package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverStatus string
type KYCStatus string

const (
	DriverStatusOffline DriverStatus = "offline"
	DriverStatusOnline  DriverStatus = "online"
	DriverStatusBusy    DriverStatus = "busy"

	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

type Driver struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID              primitive.ObjectID  `json:"user_id" bson:"user_id" validate:"required"`
	Name                string              `json:"name" bson:"name"`
	Phone               string              `json:"phone" bson:"phone"`
	KYCStatus           KYCStatus           `json:"kyc_status" bson:"kyc_status" default:"pending"`
	Status              DriverStatus        `json:"status" bson:"status" default:"offline"`
	IsActive            bool                `json:"is_active" bson:"is_active" default:"true"`
	IsBlocked           bool                `json:"is_blocked" bson:"is_blocked" default:"false"`
	CurrentLocation     *Location           `json:"current_location" bson:"current_location"`
	LastLocationUpdate  *time.Time          `json:"last_location_update" bson:"last_location_update"`
	Rating              float64             `json:"rating" bson:"rating" default:"0"`
	TotalRatings        int64               `json:"total_ratings" bson:"total_ratings" default:"0"`
	CompletedDeliveries int64               `json:"completed_deliveries" bson:"completed_deliveries" default:"0"`
	TotalEarnings       float64             `json:"total_earnings" bson:"total_earnings" default:"0"`
	VehicleID           *primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`
	VehicleType         string              `json:"vehicle_type" bson:"vehicle_type"`
	// Cargo sizes the driver's vehicle can carry.
	CargoCapabilities []CargoSize `json:"cargo_capabilities" bson:"cargo_capabilities"`
	DeviceToken       string      `json:"device_token" bson:"device_token"`
	DevicePlatform    string      `json:"device_platform" bson:"device_platform"` // fcm, apns
	CreatedAt         time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" bson:"updated_at"`
	ApprovedAt        *time.Time  `json:"approved_at" bson:"approved_at"`
}

// Dispatchable reports whether the driver may receive assignments at all;
// status freshness is checked separately by the geo index.
func (d *Driver) Dispatchable() bool {
	return d.KYCStatus == KYCStatusApproved && d.IsActive && !d.IsBlocked
}

func (d *Driver) CanCarry(size CargoSize) bool {
	for _, s := range d.CargoCapabilities {
		if s == size {
			return true
		}
	}
	return false
}
