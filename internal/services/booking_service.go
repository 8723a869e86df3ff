package services

import (
	"context"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"
	"gocargo/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateBookingRequest struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Pickup      LocationInput      `json:"pickup"`
	Drop        LocationInput      `json:"drop"`
	Cargo       models.CargoDetails `json:"cargo"`
	VehicleType string             `json:"vehicle_type"`
	Express     bool               `json:"express"`
	Insurance   bool               `json:"insurance"`
	PromoCode   string             `json:"promo_code"`
	PaymentMethod string           `json:"payment_method"`
	ScheduledAt *time.Time         `json:"scheduled_at"`
}

type LocationInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// BookingService owns the booking lifecycle around the state machine: intake
// and pricing on creation, payment settlement, and post-delivery rating.
type BookingService interface {
	Create(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	GetByCode(ctx context.Context, code string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	ConfirmPayment(ctx context.Context, id primitive.ObjectID, reference string) (*models.Booking, error)
	Rate(ctx context.Context, id primitive.ObjectID, score float64, comment string) (*models.Booking, error)
}

type bookingService struct {
	bookingRepo interfaces.BookingRepository
	driverRepo  interfaces.DriverRepository
	pricing     PricingService
	geocoder    maps.MapsProvider
	publisher   EventPublisher
	logger      *logger.Logger
}

func NewBookingService(
	bookingRepo interfaces.BookingRepository,
	driverRepo interfaces.DriverRepository,
	pricing PricingService,
	geocoder maps.MapsProvider,
	publisher EventPublisher,
	log *logger.Logger,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		driverRepo:  driverRepo,
		pricing:     pricing,
		geocoder:    geocoder,
		publisher:   publisher,
		logger:      log,
	}
}

func (s *bookingService) Create(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	pickup, err := s.resolveLocation(ctx, &req.Pickup)
	if err != nil {
		return nil, err
	}
	drop, err := s.resolveLocation(ctx, &req.Drop)
	if err != nil {
		return nil, err
	}

	distance := utils.CalculateDistance(
		pickup.Latitude(), pickup.Longitude(),
		drop.Latitude(), drop.Longitude(),
	)
	if distance > utils.MaxTripDistanceKM {
		return nil, NewValidationError("drop", "trip distance exceeds the service limit")
	}

	breakdown, err := s.pricing.Quote(ctx, &QuoteRequest{
		DistanceKM:  distance,
		CargoSize:   req.Cargo.Size,
		VehicleType: req.VehicleType,
		Express:     req.Express,
		Fragile:     req.Cargo.Fragile,
		Insurance:   req.Insurance,
		PromoCode:   req.PromoCode,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	booking := &models.Booking{
		BookingCode: utils.GenerateBookingCode(),
		UserID:      req.UserID,
		Pickup:      *pickup,
		Drop:        *drop,
		DistanceKM:  distance,
		Cargo:       req.Cargo,
		Pricing:     breakdown,
		Payment: models.PaymentInfo{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
		},
		OTP: &models.BookingOTP{
			Pickup: utils.GenerateOTP(utils.OTPLength),
			Drop:   utils.GenerateOTP(utils.OTPLength),
		},
		Status: models.BookingStatusPending,
		Timeline: []models.TimelineEntry{{
			Status:    models.BookingStatusPending,
			Timestamp: now,
			Location:  pickup,
			Note:      "booking created",
		}},
		ScheduledAt: req.ScheduledAt,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.LogBookingEvent(booking.ID, utils.EventBookingCreated, map[string]interface{}{
		"booking_code": booking.BookingCode,
		"distance_km":  distance,
		"total":        breakdown.Total,
	})

	if s.publisher != nil {
		s.publisher.BookingCreated(ctx, booking)
	}

	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	return s.bookingRepo.GetByCode(ctx, code)
}

func (s *bookingService) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetByUser(ctx, userID, params)
}

func (s *bookingService) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return s.bookingRepo.GetByDriver(ctx, driverID, params)
}

func (s *bookingService) ConfirmPayment(ctx context.Context, id primitive.ObjectID, reference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Payment.Status == models.PaymentStatusCompleted {
		return booking, nil
	}
	if !booking.IsActive() {
		return nil, &InvalidTransitionError{From: booking.Status, To: booking.Status}
	}

	now := time.Now()
	err = s.bookingRepo.Update(ctx, id, map[string]interface{}{
		"payment.status":     models.PaymentStatusCompleted,
		"payment.settled_at": now,
		"payment.reference":  reference,
	})
	if err != nil {
		return nil, err
	}

	booking.Payment.Status = models.PaymentStatusCompleted
	booking.Payment.SettledAt = &now
	booking.Payment.Reference = reference

	s.logger.LogBookingEvent(id, utils.EventPaymentSettled, map[string]interface{}{
		"reference": reference,
	})

	if s.publisher != nil {
		s.publisher.PaymentSettled(ctx, booking)
	}

	return booking, nil
}

func (s *bookingService) Rate(ctx context.Context, id primitive.ObjectID, score float64, comment string) (*models.Booking, error) {
	if score < utils.MinDriverRating || score > utils.MaxDriverRating {
		return nil, NewValidationError("score", "rating must be between 1 and 5")
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, NewValidationError("status", "only completed bookings can be rated")
	}
	if booking.Rating != nil {
		return nil, NewValidationError("rating", "booking already rated")
	}

	rating := &models.BookingRating{
		Score:   score,
		Comment: comment,
		RatedAt: time.Now(),
	}

	if err := s.bookingRepo.Update(ctx, id, map[string]interface{}{"rating": rating}); err != nil {
		return nil, err
	}
	booking.Rating = rating

	if booking.DriverID != nil {
		if err := s.applyDriverRating(ctx, *booking.DriverID, score); err != nil {
			s.logger.WithBookingID(id).WithError(err).Warn("Failed to fold rating into driver average")
		}
	}

	return booking, nil
}

func (s *bookingService) applyDriverRating(ctx context.Context, driverID primitive.ObjectID, score float64) error {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	newTotal := driver.TotalRatings + 1
	newAvg := (driver.Rating*float64(driver.TotalRatings) + score) / float64(newTotal)

	return s.driverRepo.ApplyRating(ctx, driverID, newAvg, newTotal)
}

func (s *bookingService) validateCreate(req *CreateBookingRequest) error {
	if req.UserID.IsZero() {
		return NewValidationError("user_id", "required")
	}
	if !models.ValidCargoSize(req.Cargo.Size) {
		return NewValidationError("cargo.size", "unknown cargo size")
	}
	if req.Cargo.WeightKG < 0 || req.Cargo.WeightKG > utils.MaxCargoWeightKG {
		return NewValidationError("cargo.weight_kg", "outside the accepted range")
	}
	if req.Pickup.Address == "" && !utils.IsValidCoordinates(req.Pickup.Latitude, req.Pickup.Longitude) {
		return NewValidationError("pickup", "address or valid coordinates required")
	}
	if req.Drop.Address == "" && !utils.IsValidCoordinates(req.Drop.Latitude, req.Drop.Longitude) {
		return NewValidationError("drop", "address or valid coordinates required")
	}
	return nil
}

// resolveLocation fills in whichever half of the location the caller omitted,
// geocoding the address or reverse-geocoding the coordinates.
func (s *bookingService) resolveLocation(ctx context.Context, input *LocationInput) (*models.Location, error) {
	hasCoords := utils.IsValidCoordinates(input.Latitude, input.Longitude) &&
		(input.Latitude != 0 || input.Longitude != 0)

	if !hasCoords {
		if s.geocoder == nil {
			return nil, ErrDependencyUnavailable
		}
		resp, err := s.geocoder.Geocode(ctx, input.Address)
		if err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			return nil, NewValidationError("address", "could not be geocoded")
		}
		result := resp.Results[0]
		location := models.NewLocation(result.Coordinates.Latitude, result.Coordinates.Longitude, result.Address)
		location.PlaceID = result.PlaceID
		return &location, nil
	}

	address := input.Address
	if address == "" && s.geocoder != nil {
		if resp, err := s.geocoder.ReverseGeocode(ctx, input.Latitude, input.Longitude); err == nil && len(resp.Results) > 0 {
			address = resp.Results[0].Address
		}
	}

	location := models.NewLocation(input.Latitude, input.Longitude, address)
	return &location, nil
}
