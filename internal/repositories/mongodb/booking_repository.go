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

type bookingRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewBookingRepository(db *mongo.Database, cache services.CacheService) interfaces.BookingRepository {
	return &bookingRepository{
		collection: db.Collection("bookings"),
		cache:      cache,
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if booking.IsActive() {
		r.cacheBooking(ctx, booking)
	}

	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	if booking := r.getBookingFromCache(ctx, id.Hex()); booking != nil {
		return booking, nil
	}

	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.IsActive() {
		r.cacheBooking(ctx, &booking)
	}

	return &booking, nil
}

func (r *bookingRepository) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"booking_code": code}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking by code: %w", err)
	}

	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrBookingNotFound
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return nil
}

// AppendTransition moves the booking to entry.Status and records the timeline
// entry, but only while the document still carries the expected status. A
// losing concurrent caller gets ErrStatusConflict, never a double write.
func (r *bookingRepository) AppendTransition(ctx context.Context, id primitive.ObjectID, from models.BookingStatus, entry models.TimelineEntry, extra map[string]interface{}) (*models.Booking, error) {
	set := bson.M{
		"status":     entry.Status,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		set[k] = v
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"timeline": entry},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking models.Booking
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": from},
		update,
		opts,
	).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to transition booking: %w", err)
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return &booking, nil
}

// ClaimDriver is the single atomic claim point for dispatch. The filter only
// matches a pending booking with no driver, so exactly one of any number of
// concurrent claims can succeed.
func (r *bookingRepository) ClaimDriver(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, vehicleID *primitive.ObjectID, entry models.TimelineEntry) (*models.Booking, error) {
	set := bson.M{
		"driver_id":  driverID,
		"status":     models.BookingStatusDriverAssigned,
		"updated_at": time.Now(),
	}
	if vehicleID != nil {
		set["vehicle_id"] = vehicleID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking models.Booking
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":       id,
			"status":    models.BookingStatusPending,
			"driver_id": nil,
		},
		bson.M{
			"$set":  set,
			"$push": bson.M{"timeline": entry},
		},
		opts,
	).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("failed to claim booking: %w", err)
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return &booking, nil
}

func (r *bookingRepository) MarkEarningsCredited(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "earnings_credited": false},
		bson.M{"$set": bson.M{"earnings_credited": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark earnings credited: %w", err)
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return result.ModifiedCount > 0, nil
}

func (r *bookingRepository) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findBookingsWithFilter(ctx, bson.M{"user_id": userID}, params)
}

func (r *bookingRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findBookingsWithFilter(ctx, bson.M{"driver_id": driverID}, params)
}

func (r *bookingRepository) GetActiveBookings(ctx context.Context) ([]*models.Booking, error) {
	filter := bson.M{
		"status": bson.M{"$nin": []models.BookingStatus{
			models.BookingStatusCompleted,
			models.BookingStatusCancelled,
			models.BookingStatusFailed,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, nil
}

func (r *bookingRepository) GetPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	filter := bson.M{
		"status":     models.BookingStatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByStatus(ctx context.Context, statuses ...models.BookingStatus) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": bson.M{"$in": statuses}})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) CountActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status": bson.M{"$nin": []models.BookingStatus{
			models.BookingStatusCompleted,
			models.BookingStatusCancelled,
			models.BookingStatusFailed,
		}},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count driver bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) findBookingsWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	if params.Search != "" {
		searchFields := []string{"booking_code", "pickup.address", "drop.address"}
		searchFilter := params.GetSearchFilter(searchFields)
		if len(searchFilter) > 0 {
			filter = bson.M{"$and": []bson.M{filter, searchFilter}}
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	opts := params.GetSortOptions()
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	for cursor.Next(ctx) {
		var booking models.Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, 0, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, total, nil
}

// Cache operations
func (r *bookingRepository) cacheBooking(ctx context.Context, booking *models.Booking) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheBookingPrefix, booking.ID.Hex())
		r.cache.Set(ctx, cacheKey, booking, 15*time.Minute)
	}
}

func (r *bookingRepository) getBookingFromCache(ctx context.Context, bookingID string) *models.Booking {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheBookingPrefix, bookingID)
	var booking models.Booking
	if err := r.cache.Get(ctx, cacheKey, &booking); err != nil {
		return nil
	}

	return &booking
}

func (r *bookingRepository) invalidateBookingCache(ctx context.Context, bookingID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CacheBookingPrefix, bookingID)
		r.cache.Delete(ctx, cacheKey)
	}
}
