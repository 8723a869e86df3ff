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

type pricingRuleRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewPricingRuleRepository(db *mongo.Database, cache services.CacheService) interfaces.PricingRuleRepository {
	return &pricingRuleRepository{
		collection: db.Collection("pricing_rules"),
		cache:      cache,
	}
}

func (r *pricingRuleRepository) Create(ctx context.Context, rule *models.PricingRule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt

	_, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}

	r.invalidateRuleCache(ctx, rule.VehicleType)

	return nil
}

func (r *pricingRuleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error) {
	var rule models.PricingRule
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrPricingRuleNotFound
		}
		return nil, fmt.Errorf("failed to get pricing rule: %w", err)
	}

	return &rule, nil
}

func (r *pricingRuleRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrPricingRuleNotFound
	}

	if vt, ok := updates["vehicle_type"].(string); ok {
		r.invalidateRuleCache(ctx, vt)
	}

	return nil
}

func (r *pricingRuleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}
	return nil
}

// GetActiveForVehicleType prefers an exact vehicle type match over the "all"
// wildcard, newest effective rule first.
func (r *pricingRuleRepository) GetActiveForVehicleType(ctx context.Context, vehicleType string, at time.Time) (*models.PricingRule, error) {
	if rule := r.getRuleFromCache(ctx, vehicleType); rule != nil {
		return rule, nil
	}

	filter := bson.M{
		"vehicle_type":   bson.M{"$in": []string{vehicleType, "all"}},
		"is_active":      true,
		"effective_from": bson.M{"$lte": at},
		"$or": []bson.M{
			{"effective_until": nil},
			{"effective_until": bson.M{"$gt": at}},
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "effective_from", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pricing rules: %w", err)
	}
	defer cursor.Close(ctx)

	var exact, wildcard *models.PricingRule
	for cursor.Next(ctx) {
		var rule models.PricingRule
		if err := cursor.Decode(&rule); err != nil {
			return nil, fmt.Errorf("failed to decode pricing rule: %w", err)
		}
		if rule.VehicleType == vehicleType && exact == nil {
			r := rule
			exact = &r
		}
		if rule.VehicleType == "all" && wildcard == nil {
			r := rule
			wildcard = &r
		}
	}

	rule := exact
	if rule == nil {
		rule = wildcard
	}
	if rule == nil {
		return nil, services.ErrPricingRuleNotFound
	}

	r.cacheRule(ctx, vehicleType, rule)

	return rule, nil
}

func (r *pricingRuleRepository) List(ctx context.Context) ([]*models.PricingRule, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []*models.PricingRule
	for cursor.Next(ctx) {
		var rule models.PricingRule
		if err := cursor.Decode(&rule); err != nil {
			return nil, fmt.Errorf("failed to decode pricing rule: %w", err)
		}
		rules = append(rules, &rule)
	}

	return rules, nil
}

// Cache operations
func (r *pricingRuleRepository) cacheRule(ctx context.Context, vehicleType string, rule *models.PricingRule) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CachePricingRulePrefix, vehicleType)
		r.cache.Set(ctx, cacheKey, rule, 5*time.Minute)
	}
}

func (r *pricingRuleRepository) getRuleFromCache(ctx context.Context, vehicleType string) *models.PricingRule {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CachePricingRulePrefix, vehicleType)
	var rule models.PricingRule
	if err := r.cache.Get(ctx, cacheKey, &rule); err != nil {
		return nil
	}

	return &rule
}

func (r *pricingRuleRepository) invalidateRuleCache(ctx context.Context, vehicleType string) {
	if r.cache != nil {
		r.cache.Delete(ctx,
			fmt.Sprintf("%s%s", utils.CachePricingRulePrefix, vehicleType),
			fmt.Sprintf("%sall", utils.CachePricingRulePrefix),
		)
	}
}
