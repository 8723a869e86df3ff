package services

import (
	"context"
	"sync"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"
	"gocargo/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text", Output: "stderr"})
	return log
}

// memBookingRepo is an in-memory BookingRepository whose conditional writes
// honor the same contracts as the MongoDB implementation: ClaimDriver and
// AppendTransition filter on current state under one lock.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[primitive.ObjectID]*models.Booking)}
}

func (r *memBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	clone := *booking
	r.bookings[booking.ID] = &clone
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	clone := *booking
	return &clone, nil
}

func (r *memBookingRepo) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, booking := range r.bookings {
		if booking.BookingCode == code {
			clone := *booking
			return &clone, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (r *memBookingRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	applyBookingUpdates(booking, updates)
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *memBookingRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return ErrBookingNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memBookingRepo) AppendTransition(ctx context.Context, id primitive.ObjectID, from models.BookingStatus, entry models.TimelineEntry, extra map[string]interface{}) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if booking.Status != from {
		return nil, ErrStatusConflict
	}
	booking.Status = entry.Status
	booking.Timeline = append(booking.Timeline, entry)
	applyBookingUpdates(booking, extra)
	booking.UpdatedAt = time.Now()
	clone := *booking
	return &clone, nil
}

func (r *memBookingRepo) ClaimDriver(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, vehicleID *primitive.ObjectID, entry models.TimelineEntry) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if booking.Status != models.BookingStatusPending || booking.DriverID != nil {
		return nil, ErrAlreadyAssigned
	}
	booking.DriverID = &driverID
	booking.VehicleID = vehicleID
	booking.Status = models.BookingStatusDriverAssigned
	booking.Timeline = append(booking.Timeline, entry)
	booking.UpdatedAt = time.Now()
	clone := *booking
	return &clone, nil
}

func (r *memBookingRepo) MarkEarningsCredited(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return false, ErrBookingNotFound
	}
	if booking.EarningsCredited {
		return false, nil
	}
	booking.EarningsCredited = true
	return true, nil
}

func (r *memBookingRepo) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Booking
	for _, booking := range r.bookings {
		if booking.UserID == userID {
			clone := *booking
			result = append(result, &clone)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memBookingRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Booking
	for _, booking := range r.bookings {
		if booking.DriverID != nil && *booking.DriverID == driverID {
			clone := *booking
			result = append(result, &clone)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memBookingRepo) GetActiveBookings(ctx context.Context) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Booking
	for _, booking := range r.bookings {
		if booking.IsActive() {
			clone := *booking
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memBookingRepo) GetPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Booking
	for _, booking := range r.bookings {
		if booking.Status == models.BookingStatusPending && booking.CreatedAt.Before(cutoff) {
			clone := *booking
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memBookingRepo) CountByStatus(ctx context.Context, statuses ...models.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, booking := range r.bookings {
		for _, status := range statuses {
			if booking.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *memBookingRepo) CountActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, booking := range r.bookings {
		if booking.DriverID != nil && *booking.DriverID == driverID && booking.IsActive() {
			count++
		}
	}
	return count, nil
}

func applyBookingUpdates(booking *models.Booking, updates map[string]interface{}) {
	for key, value := range updates {
		switch key {
		case "cancellation":
			if c, ok := value.(*models.Cancellation); ok {
				booking.Cancellation = c
			}
		case "payment.status":
			if s, ok := value.(models.PaymentStatus); ok {
				booking.Payment.Status = s
			}
		case "payment.reference":
			if ref, ok := value.(string); ok {
				booking.Payment.Reference = ref
			}
		case "payment.settled_at":
			switch at := value.(type) {
			case time.Time:
				booking.Payment.SettledAt = &at
			case *time.Time:
				booking.Payment.SettledAt = at
			}
		case "rating":
			if rating, ok := value.(*models.BookingRating); ok {
				booking.Rating = rating
			}
		}
	}
}

// memDriverRepo mirrors the conditional status flip semantics of the real
// repository.
type memDriverRepo struct {
	mu      sync.Mutex
	drivers map[primitive.ObjectID]*models.Driver
}

func newMemDriverRepo() *memDriverRepo {
	return &memDriverRepo{drivers: make(map[primitive.ObjectID]*models.Driver)}
}

func (r *memDriverRepo) Create(ctx context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if driver.ID.IsZero() {
		driver.ID = primitive.NewObjectID()
	}
	clone := *driver
	r.drivers[driver.ID] = &clone
	return nil
}

func (r *memDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	clone := *driver
	return &clone, nil
}

func (r *memDriverRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, driver := range r.drivers {
		if driver.UserID == userID {
			clone := *driver
			return &clone, nil
		}
	}
	return nil, ErrDriverNotFound
}

func (r *memDriverRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Driver, 0, len(ids))
	for _, id := range ids {
		if driver, ok := r.drivers[id]; ok {
			clone := *driver
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memDriverRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drivers[id]; !ok {
		return ErrDriverNotFound
	}
	return nil
}

func (r *memDriverRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	driver.CurrentLocation = location
	driver.LastLocationUpdate = &at
	return nil
}

func (r *memDriverRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	driver.Status = status
	return nil
}

func (r *memDriverRepo) SetStatusIf(ctx context.Context, id primitive.ObjectID, from, to models.DriverStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return false, ErrDriverNotFound
	}
	if driver.Status != from {
		return false, nil
	}
	driver.Status = to
	return true, nil
}

func (r *memDriverRepo) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Driver
	for _, driver := range r.drivers {
		if driver.Status != models.DriverStatusOnline || !driver.Dispatchable() || driver.CurrentLocation == nil {
			continue
		}
		distance := utils.CalculateDistance(lat, lng,
			driver.CurrentLocation.Latitude(), driver.CurrentLocation.Longitude())
		if distance <= radiusKM {
			clone := *driver
			result = append(result, &clone)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memDriverRepo) CountOnlineApproved(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, driver := range r.drivers {
		if driver.Status == models.DriverStatusOnline && driver.Dispatchable() {
			count++
		}
	}
	return count, nil
}

func (r *memDriverRepo) CreditEarnings(ctx context.Context, id primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	driver.TotalEarnings += amount
	driver.CompletedDeliveries++
	return nil
}

func (r *memDriverRepo) ApplyRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	driver, ok := r.drivers[id]
	if !ok {
		return ErrDriverNotFound
	}
	driver.Rating = rating
	driver.TotalRatings = totalRatings
	return nil
}

func (r *memDriverRepo) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Driver, 0, len(r.drivers))
	for _, driver := range r.drivers {
		clone := *driver
		result = append(result, &clone)
	}
	return result, int64(len(result)), nil
}

type memRuleRepo struct {
	mu    sync.Mutex
	rules []*models.PricingRule
}

func (r *memRuleRepo) Create(ctx context.Context, rule *models.PricingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID.IsZero() {
		rule.ID = primitive.NewObjectID()
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memRuleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, ErrPricingRuleNotFound
}

func (r *memRuleRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *memRuleRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return nil
}

func (r *memRuleRepo) GetActiveForVehicleType(ctx context.Context, vehicleType string, at time.Time) (*models.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var wildcard *models.PricingRule
	for _, rule := range r.rules {
		if !rule.IsActive {
			continue
		}
		if rule.VehicleType == vehicleType {
			return rule, nil
		}
		if rule.VehicleType == "all" {
			wildcard = rule
		}
	}
	if wildcard != nil {
		return wildcard, nil
	}
	return nil, ErrPricingRuleNotFound
}

func (r *memRuleRepo) List(ctx context.Context) ([]*models.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.PricingRule(nil), r.rules...), nil
}

type memPromoRepo struct {
	mu     sync.Mutex
	promos map[string]*models.Promotion
}

func newMemPromoRepo() *memPromoRepo {
	return &memPromoRepo{promos: make(map[string]*models.Promotion)}
}

func (r *memPromoRepo) Create(ctx context.Context, promotion *models.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if promotion.ID.IsZero() {
		promotion.ID = primitive.NewObjectID()
	}
	r.promos[promotion.Code] = promotion
	return nil
}

func (r *memPromoRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, promo := range r.promos {
		if promo.ID == id {
			return promo, nil
		}
	}
	return nil, ErrPromotionNotFound
}

func (r *memPromoRepo) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	promo, ok := r.promos[code]
	if !ok {
		return nil, ErrPromotionNotFound
	}
	return promo, nil
}

func (r *memPromoRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (r *memPromoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return nil
}

func (r *memPromoRepo) List(ctx context.Context, activeOnly bool) ([]*models.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Promotion
	for _, promo := range r.promos {
		if activeOnly && !promo.IsActive {
			continue
		}
		result = append(result, promo)
	}
	return result, nil
}

// countingWallet records refund instructions so tests can assert the
// exactly-once refund behavior.
type countingWallet struct {
	mu      sync.Mutex
	refunds []*payment.RefundRequest
}

func (w *countingWallet) RefundPayment(ctx context.Context, request *payment.RefundRequest) (*payment.RefundResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refunds = append(w.refunds, request)
	return &payment.RefundResponse{
		RefundID: primitive.NewObjectID().Hex(),
		Status:   "succeeded",
		Amount:   request.Amount,
		Currency: request.Currency,
	}, nil
}

func (w *countingWallet) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.refunds)
}
