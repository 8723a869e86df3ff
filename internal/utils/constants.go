package utils

import "time"

// Application Constants
const (
	AppName    = "GoCargo"
	AppVersion = "1.0.0"

	// Default values
	DefaultCurrency = "INR"
	DefaultTimeZone = "UTC"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Booking Constants
	BookingCodePrefix = "CRG"
	BookingCodeLength = 8
	OTPLength         = 4
	MaxCargoWeightKG  = 2000.0
	MaxTripDistanceKM = 500.0

	// Dispatch Constants
	DefaultSearchRadiusKM  = 10.0
	BroadcastRadiusKM      = 15.0
	MaxSearchRadiusKM      = 50.0
	MaxNearbyCandidates    = 50
	LocationFreshnessLimit = 10 * time.Minute

	// Driver Constants
	MinDriverRating = 1.0
	MaxDriverRating = 5.0
	// Share of the final fare credited to the driver on completion.
	DriverSharePercent = 0.70

	// Pricing Constants
	MinSurgeMultiplier = 1.0
	MaxSurgeMultiplier = 2.5

	// Notification
	NotificationTimeout = 30 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidToken     = "invalid token"
	ErrTokenExpired     = "token expired"
	ErrInvalidInput     = "invalid input"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
)

// Cache Keys
const (
	CacheBookingPrefix     = "booking:"
	CacheDriverPrefix      = "driver:"
	CachePricingRulePrefix = "pricing_rule:"
	CachePromotionPrefix   = "promotion:"
	DriverGeoKey           = "drivers:geo"
	BroadcastSetPrefix     = "broadcast:"
	WeatherSignalKey       = "weather:current"
)

// Event Types
const (
	EventBookingCreated   = "booking_created"
	EventDriverAssigned   = "driver_assigned"
	EventBookingOffer     = "booking_offer"
	EventStatusChanged    = "booking_status_changed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventPaymentSettled   = "payment_settled"
)

// Geographic Constants
const (
	EarthRadiusKM = 6371.0
)
