package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DispatchService coordinates the three assignment protocols. All of them
// converge on the same atomic claim: a booking's driver field goes from null
// to non-null exactly once, no matter how many contenders race.
type DispatchService interface {
	// AutoAssign picks the best-ranked nearby driver and claims them. A lost
	// race on the top candidate fails with ErrNoDriverAvailable rather than
	// silently retrying a lower-ranked driver.
	AutoAssign(ctx context.Context, bookingID primitive.ObjectID) (*models.Booking, error)

	// ManualAssign claims a caller-chosen driver.
	ManualAssign(ctx context.Context, bookingID, driverID primitive.ObjectID) (*models.Booking, error)

	// Broadcast offers the booking to every eligible driver in the broadcast
	// radius. The round has no expiry; it ends when a driver accepts or the
	// booking becomes unassignable.
	Broadcast(ctx context.Context, bookingID primitive.ObjectID) ([]*models.Driver, error)

	// Accept is a driver's claim on a broadcast offer. The first caller
	// wins; every later one gets ErrAlreadyAssigned.
	Accept(ctx context.Context, bookingID, driverID primitive.ObjectID) (*models.Booking, error)
}

type DispatchConfig struct {
	SearchRadiusKM    float64
	BroadcastRadiusKM float64
	MaxCandidates     int
}

type dispatchService struct {
	bookingRepo interfaces.BookingRepository
	driverRepo  interfaces.DriverRepository
	geo         GeoService
	ranker      RankingService
	cache       CacheService
	publisher   EventPublisher
	config      DispatchConfig
	logger      *logger.Logger
}

func NewDispatchService(
	bookingRepo interfaces.BookingRepository,
	driverRepo interfaces.DriverRepository,
	geo GeoService,
	ranker RankingService,
	cache CacheService,
	publisher EventPublisher,
	config DispatchConfig,
	log *logger.Logger,
) DispatchService {
	if config.SearchRadiusKM <= 0 {
		config.SearchRadiusKM = utils.DefaultSearchRadiusKM
	}
	if config.BroadcastRadiusKM <= 0 {
		config.BroadcastRadiusKM = utils.BroadcastRadiusKM
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = utils.MaxNearbyCandidates
	}
	return &dispatchService{
		bookingRepo: bookingRepo,
		driverRepo:  driverRepo,
		geo:         geo,
		ranker:      ranker,
		cache:       cache,
		publisher:   publisher,
		config:      config,
		logger:      log,
	}
}

func (s *dispatchService) AutoAssign(ctx context.Context, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.assignableBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.geo.Nearby(ctx,
		booking.Pickup.Latitude(), booking.Pickup.Longitude(),
		s.config.SearchRadiusKM, s.config.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("driver search failed: %w", err)
	}

	ranked := s.ranker.Rank(candidates, booking.Cargo.Size)
	if len(ranked) == 0 {
		return nil, ErrNoDriverAvailable
	}

	top := ranked[0].Driver

	updated, err := s.claim(ctx, booking, top)
	if err != nil {
		if errors.Is(err, ErrDriverUnavailable) {
			// The top candidate was taken between ranking and claiming.
			// Deliberately no walk down the list: predictable over clever.
			return nil, ErrNoDriverAvailable
		}
		return nil, err
	}

	s.logger.LogDispatchEvent(bookingID, "auto_assigned", map[string]interface{}{
		"driver_id":   top.ID.Hex(),
		"distance_km": ranked[0].DistanceKM,
		"candidates":  len(ranked),
	})

	return updated, nil
}

func (s *dispatchService) ManualAssign(ctx context.Context, bookingID, driverID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.assignableBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.Dispatchable() {
		return nil, ErrDriverUnavailable
	}

	updated, err := s.claim(ctx, booking, driver)
	if err != nil {
		return nil, err
	}

	s.logger.LogDispatchEvent(bookingID, "manual_assigned", map[string]interface{}{
		"driver_id": driverID.Hex(),
	})

	return updated, nil
}

func (s *dispatchService) Broadcast(ctx context.Context, bookingID primitive.ObjectID) ([]*models.Driver, error) {
	booking, err := s.assignableBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.geo.Nearby(ctx,
		booking.Pickup.Latitude(), booking.Pickup.Longitude(),
		s.config.BroadcastRadiusKM, s.config.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("driver search failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoDriverAvailable
	}

	drivers := make([]*models.Driver, 0, len(candidates))
	members := make([]interface{}, 0, len(candidates))
	for _, c := range candidates {
		drivers = append(drivers, c.Driver)
		members = append(members, c.Driver.ID.Hex())
	}

	if s.cache != nil {
		key := broadcastKey(bookingID)
		if err := s.cache.SAdd(ctx, key, members...); err != nil {
			s.logger.WithBookingID(bookingID).WithError(err).Warn("Failed to record broadcast set")
		}
	}

	if s.publisher != nil {
		s.publisher.BookingOffer(ctx, booking, drivers)
	}

	s.logger.LogDispatchEvent(bookingID, "broadcast", map[string]interface{}{
		"drivers": len(drivers),
	})

	return drivers, nil
}

func (s *dispatchService) Accept(ctx context.Context, bookingID, driverID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.DriverID != nil || booking.Status != models.BookingStatusPending {
		return nil, ErrAlreadyAssigned
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.Dispatchable() {
		return nil, ErrDriverUnavailable
	}

	updated, err := s.claim(ctx, booking, driver)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Delete(ctx, broadcastKey(bookingID))
	}

	s.logger.LogDispatchEvent(bookingID, "accepted", map[string]interface{}{
		"driver_id": driverID.Hex(),
	})

	return updated, nil
}

// claim is the shared two-step claim. The driver is marked busy first with a
// conditional status flip, then the booking claim runs as a single atomic
// conditional write. No in-process lock is held across either store call;
// losing a race rolls the driver back to online.
func (s *dispatchService) claim(ctx context.Context, booking *models.Booking, driver *models.Driver) (*models.Booking, error) {
	flipped, err := s.driverRepo.SetStatusIf(ctx, driver.ID, models.DriverStatusOnline, models.DriverStatusBusy)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve driver: %w", err)
	}
	if !flipped {
		return nil, ErrDriverUnavailable
	}

	entry := models.TimelineEntry{
		Status:    models.BookingStatusDriverAssigned,
		Timestamp: time.Now(),
		Note:      "driver assigned",
	}

	updated, err := s.bookingRepo.ClaimDriver(ctx, booking.ID, driver.ID, driver.VehicleID, entry)
	if err != nil {
		if _, revertErr := s.driverRepo.SetStatusIf(ctx, driver.ID, models.DriverStatusBusy, models.DriverStatusOnline); revertErr != nil {
			s.logger.WithDriverID(driver.ID).WithError(revertErr).Error("Failed to release driver after lost claim")
		}
		if errors.Is(err, ErrAlreadyAssigned) {
			s.logger.WithBookingID(booking.ID).WithDriverID(driver.ID).Debug("Claim lost, booking already assigned")
			return nil, ErrAlreadyAssigned
		}
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.DriverAssigned(ctx, updated, driver)
	}

	return updated, nil
}

func (s *dispatchService) assignableBooking(ctx context.Context, bookingID primitive.ObjectID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.DriverID != nil {
		return nil, ErrAlreadyAssigned
	}
	if booking.Status != models.BookingStatusPending {
		return nil, &InvalidTransitionError{From: booking.Status, To: models.BookingStatusDriverAssigned}
	}
	return booking, nil
}

func broadcastKey(bookingID primitive.ObjectID) string {
	return utils.BroadcastSetPrefix + bookingID.Hex()
}
