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
)

type promotionRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewPromotionRepository(db *mongo.Database, cache services.CacheService) interfaces.PromotionRepository {
	return &promotionRepository{
		collection: db.Collection("promotions"),
		cache:      cache,
	}
}

func (r *promotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	promotion.ID = primitive.NewObjectID()
	promotion.CreatedAt = time.Now()
	promotion.UpdatedAt = promotion.CreatedAt

	_, err := r.collection.InsertOne(ctx, promotion)
	if err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}

	return nil
}

func (r *promotionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Promotion, error) {
	var promotion models.Promotion
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&promotion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}

	return &promotion, nil
}

func (r *promotionRepository) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	if promotion := r.getPromotionFromCache(ctx, code); promotion != nil {
		return promotion, nil
	}

	var promotion models.Promotion
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&promotion)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, services.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion by code: %w", err)
	}

	r.cachePromotion(ctx, &promotion)

	return &promotion, nil
}

func (r *promotionRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrPromotionNotFound
	}

	return nil
}

func (r *promotionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	return nil
}

func (r *promotionRepository) List(ctx context.Context, activeOnly bool) ([]*models.Promotion, error) {
	filter := bson.M{}
	if activeOnly {
		now := time.Now()
		filter = bson.M{
			"is_active":   true,
			"valid_from":  bson.M{"$lte": now},
			"valid_until": bson.M{"$gte": now},
		}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer cursor.Close(ctx)

	var promotions []*models.Promotion
	for cursor.Next(ctx) {
		var promotion models.Promotion
		if err := cursor.Decode(&promotion); err != nil {
			return nil, fmt.Errorf("failed to decode promotion: %w", err)
		}
		promotions = append(promotions, &promotion)
	}

	return promotions, nil
}

// Cache operations
func (r *promotionRepository) cachePromotion(ctx context.Context, promotion *models.Promotion) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("%s%s", utils.CachePromotionPrefix, promotion.Code)
		r.cache.Set(ctx, cacheKey, promotion, 10*time.Minute)
	}
}

func (r *promotionRepository) getPromotionFromCache(ctx context.Context, code string) *models.Promotion {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CachePromotionPrefix, code)
	var promotion models.Promotion
	if err := r.cache.Get(ctx, cacheKey, &promotion); err != nil {
		return nil
	}

	return &promotion
}
