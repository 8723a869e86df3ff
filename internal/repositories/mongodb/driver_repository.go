package mongodb

import (
	"context"
	"fmt"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/services"
	"gocargo/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type driverRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewDriverRepository(db *mongo.Database, cache services.CacheService) interfaces.DriverRepository {
	return &driverRepository{
		collection: db.Collection("drivers"),
		cache:      cache,
	}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	driver.ID = primitive.NewObjectID()
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt

	_, err := r.collection.InsertOne(ctx, driver)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	return nil
}

func (r *driverRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	if driver := r.getDriverFromCache(ctx, id.Hex()); driver != nil {
		return driver, nil
	}

	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	r.cacheDriver(ctx, &driver)

	return &driver, nil
}

func (r *driverRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	var driver models.Driver
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&driver)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to get driver by user: %w", err)
	}

	return &driver, nil
}

func (r *driverRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Driver, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	for cursor.Next(ctx) {
		var driver models.Driver
		if err := cursor.Decode(&driver); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &driver)
	}

	return drivers, nil
}

func (r *driverRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update driver: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

// UpdateLocation is a partial update: only the position and its freshness
// stamp move, everything else on the document is untouched.
func (r *driverRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location, at time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"current_location":     location,
			"last_location_update": at,
			"updated_at":           time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update driver location: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

func (r *driverRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	return r.Update(ctx, id, map[string]interface{}{"status": status})
}

// SetStatusIf performs the busy-claim handshake: the write matches only while
// the driver still carries the expected status.
func (r *driverRepository) SetStatusIf(ctx context.Context, id primitive.ObjectID, from, to models.DriverStatus) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to set driver status: %w", err)
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return result.ModifiedCount > 0, nil
}

func (r *driverRepository) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Driver, error) {
	radiusMeters := radiusKM * 1000

	filter := bson.M{
		"current_location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusMeters,
			},
		},
		"status":     models.DriverStatusOnline,
		"kyc_status": models.KYCStatusApproved,
		"is_active":  true,
		"is_blocked": false,
	}

	opts := options.Find().SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	for cursor.Next(ctx) {
		var driver models.Driver
		if err := cursor.Decode(&driver); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &driver)
	}

	return drivers, nil
}

func (r *driverRepository) CountOnlineApproved(ctx context.Context) (int64, error) {
	filter := bson.M{
		"status":     models.DriverStatusOnline,
		"kyc_status": models.KYCStatusApproved,
		"is_active":  true,
		"is_blocked": false,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count online drivers: %w", err)
	}
	return count, nil
}

func (r *driverRepository) CreditEarnings(ctx context.Context, id primitive.ObjectID, amount float64) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{
				"total_earnings":       amount,
				"completed_deliveries": 1,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to credit driver earnings: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrDriverNotFound
	}

	r.invalidateDriverCache(ctx, id.Hex())

	return nil
}

func (r *driverRepository) ApplyRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int64) error {
	return r.Update(ctx, id, map[string]interface{}{
		"rating":        rating,
		"total_ratings": totalRatings,
	})
}

func (r *driverRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	filter := bson.M{}
	if params.Search != "" {
		searchFilter := params.GetSearchFilter([]string{"name", "phone"})
		if len(searchFilter) > 0 {
			filter = searchFilter
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count drivers: %w", err)
	}

	opts := params.GetSortOptions()
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find drivers: %w", err)
	}
	defer cursor.Close(ctx)

	var drivers []*models.Driver
	for cursor.Next(ctx) {
		var driver models.Driver
		if err := cursor.Decode(&driver); err != nil {
			return nil, 0, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &driver)
	}

	return drivers, total, nil
}

// Cache operations
func (r *driverRepository) cacheDriver(ctx context.Context, driver *models.Driver) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheDriverPrefix, driver.ID.Hex())
		r.cache.Set(ctx, cacheKey, driver, 5*time.Minute)
	}
}

func (r *driverRepository) getDriverFromCache(ctx context.Context, driverID string) *models.Driver {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheDriverPrefix, driverID)
	var driver models.Driver
	if err := r.cache.Get(ctx, cacheKey, &driver); err != nil {
		return nil
	}

	return &driver
}

func (r *driverRepository) invalidateDriverCache(ctx context.Context, driverID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheDriverPrefix, driverID)
		r.cache.Delete(ctx, cacheKey)
	}
}
