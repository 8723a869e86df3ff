package interfaces

import (
	"context"

	"gocargo/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PromotionRepository stores promo codes. The pricing path only ever calls
// GetByCode; the rest serves the admin CRUD surface.
type PromotionRepository interface {
	Create(ctx context.Context, promotion *models.Promotion) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Promotion, error)
	GetByCode(ctx context.Context, code string) (*models.Promotion, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, activeOnly bool) ([]*models.Promotion, error)
}
