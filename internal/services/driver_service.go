package services

import (
	"context"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverService handles the driver-facing availability and location surface.
type DriverService interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error)
	UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64, address string) error
	SetAvailability(ctx context.Context, id primitive.ObjectID, online bool) (*models.Driver, error)
}

type driverService struct {
	driverRepo  interfaces.DriverRepository
	bookingRepo interfaces.BookingRepository
	geo         GeoService
	logger      *logger.Logger
}

func NewDriverService(driverRepo interfaces.DriverRepository, bookingRepo interfaces.BookingRepository, geo GeoService, log *logger.Logger) DriverService {
	return &driverService{
		driverRepo:  driverRepo,
		bookingRepo: bookingRepo,
		geo:         geo,
		logger:      log,
	}
}

func (s *driverService) Get(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return s.driverRepo.GetByID(ctx, id)
}

func (s *driverService) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	return s.driverRepo.GetByUserID(ctx, userID)
}

func (s *driverService) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	return s.driverRepo.List(ctx, params)
}

func (s *driverService) UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64, address string) error {
	return s.geo.UpdateLocation(ctx, id, lat, lng, address)
}

// SetAvailability flips the driver between offline and online. This toggle is
// the only path that releases a busy driver back to online; the dispatch core
// never does it for them, so a busy driver whose deliveries have all finished
// must be allowed through. The write is a compare-and-set against the status
// the toggle observed, so it can never clobber a concurrent dispatch claim.
func (s *driverService) SetAvailability(ctx context.Context, id primitive.ObjectID, online bool) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.DriverStatusOffline
	if online {
		target = models.DriverStatusOnline
		if !driver.Dispatchable() {
			return nil, ErrDriverUnavailable
		}
	}

	if driver.Status == models.DriverStatusBusy {
		active, err := s.bookingRepo.CountActiveByDriver(ctx, id)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, ErrDriverUnavailable
		}
	}

	flipped, err := s.driverRepo.SetStatusIf(ctx, id, driver.Status, target)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, ErrStatusConflict
	}
	driver.Status = target

	if !online {
		if err := s.geo.RemoveDriver(ctx, id); err != nil {
			s.logger.WithDriverID(id).WithError(err).Warn("Failed to drop driver from geo index")
		}
	}

	return driver, nil
}
