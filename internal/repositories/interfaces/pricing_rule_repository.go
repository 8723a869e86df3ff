package interfaces

import (
	"context"
	"time"

	"gocargo/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PricingRuleRepository interface {
	Create(ctx context.Context, rule *models.PricingRule) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.PricingRule, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// GetActiveForVehicleType returns the rule effective at the given time
	// for the vehicle type, falling back to the "all" wildcard rule.
	GetActiveForVehicleType(ctx context.Context, vehicleType string, at time.Time) (*models.PricingRule, error)

	List(ctx context.Context) ([]*models.PricingRule, error)
}
