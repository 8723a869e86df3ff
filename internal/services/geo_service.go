package services

import (
	"context"
	"sort"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverCandidate is a nearby driver with its distance from the query point.
type DriverCandidate struct {
	Driver     *models.Driver
	DistanceKM float64
}

// GeoService maintains the driver position index and answers nearest-driver
// queries. Redis GEO is the primary index; the MongoDB 2dsphere index on the
// drivers collection serves reads when Redis is unavailable.
type GeoService interface {
	UpdateLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64, address string) error
	RemoveDriver(ctx context.Context, driverID primitive.ObjectID) error
	Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*DriverCandidate, error)
}

type geoService struct {
	driverRepo interfaces.DriverRepository
	cache      CacheService
	freshness  time.Duration
	logger     *logger.Logger
}

func NewGeoService(driverRepo interfaces.DriverRepository, cache CacheService, freshness time.Duration, log *logger.Logger) GeoService {
	if freshness <= 0 {
		freshness = utils.LocationFreshnessLimit
	}
	return &geoService{
		driverRepo: driverRepo,
		cache:      cache,
		freshness:  freshness,
		logger:     log,
	}
}

func (s *geoService) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64, address string) error {
	_, lng = utils.NormalizeCoordinates(lat, lng)
	if !utils.IsValidCoordinates(lat, lng) {
		return NewValidationError("coordinates", "latitude or longitude out of range")
	}

	location := models.NewLocation(lat, lng, address)
	now := time.Now()

	if err := s.driverRepo.UpdateLocation(ctx, driverID, &location, now); err != nil {
		return err
	}

	if s.cache != nil {
		err := s.cache.GeoAdd(ctx, utils.DriverGeoKey, &GeoEntry{
			Member:    driverID.Hex(),
			Latitude:  lat,
			Longitude: lng,
		})
		if err != nil {
			// The document is the source of truth; a stale geo index only
			// degrades search until the next ping.
			s.logger.WithDriverID(driverID).WithError(err).Warn("Failed to update geo index")
		}
	}

	return nil
}

func (s *geoService) RemoveDriver(ctx context.Context, driverID primitive.ObjectID) error {
	if s.cache != nil {
		if err := s.cache.GeoRemove(ctx, utils.DriverGeoKey, driverID.Hex()); err != nil {
			s.logger.WithDriverID(driverID).WithError(err).Warn("Failed to remove driver from geo index")
		}
	}
	return nil
}

// Nearby returns dispatchable online drivers within radiusKM of the point,
// sorted by distance then driver id, stale positions excluded.
func (s *geoService) Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*DriverCandidate, error) {
	if limit <= 0 {
		limit = utils.MaxNearbyCandidates
	}

	candidates, err := s.nearbyFromCache(ctx, lat, lng, radiusKM, limit)
	if err != nil {
		s.logger.WithError(err).Warn("Geo index unavailable, falling back to document store")
		candidates, err = s.nearbyFromStore(ctx, lat, lng, radiusKM, limit)
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKM != candidates[j].DistanceKM {
			return candidates[i].DistanceKM < candidates[j].DistanceKM
		}
		return candidates[i].Driver.ID.Hex() < candidates[j].Driver.ID.Hex()
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *geoService) nearbyFromCache(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*DriverCandidate, error) {
	if s.cache == nil {
		return nil, ErrDependencyUnavailable
	}

	// Over-fetch so eligibility filtering below does not starve the result.
	entries, err := s.cache.GeoRadius(ctx, utils.DriverGeoKey, lat, lng, radiusKM, limit*2)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(entries))
	distances := make(map[string]float64, len(entries))
	for _, entry := range entries {
		id, err := primitive.ObjectIDFromHex(entry.Member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		distances[entry.Member] = entry.DistanceKM
	}

	drivers, err := s.driverRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]*DriverCandidate, 0, len(drivers))
	for _, driver := range drivers {
		if !s.eligible(driver) {
			continue
		}
		candidates = append(candidates, &DriverCandidate{
			Driver:     driver,
			DistanceKM: distances[driver.ID.Hex()],
		})
	}

	return candidates, nil
}

func (s *geoService) nearbyFromStore(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*DriverCandidate, error) {
	drivers, err := s.driverRepo.GetNearby(ctx, lat, lng, radiusKM, limit*2)
	if err != nil {
		return nil, err
	}

	candidates := make([]*DriverCandidate, 0, len(drivers))
	for _, driver := range drivers {
		if !s.eligible(driver) || driver.CurrentLocation == nil {
			continue
		}
		candidates = append(candidates, &DriverCandidate{
			Driver: driver,
			DistanceKM: utils.CalculateDistance(
				lat, lng,
				driver.CurrentLocation.Latitude(), driver.CurrentLocation.Longitude(),
			),
		})
	}

	return candidates, nil
}

func (s *geoService) eligible(driver *models.Driver) bool {
	if driver == nil || !driver.Dispatchable() {
		return false
	}
	if driver.Status != models.DriverStatusOnline {
		return false
	}
	if driver.LastLocationUpdate == nil {
		return false
	}
	return time.Since(*driver.LastLocationUpdate) <= s.freshness
}
