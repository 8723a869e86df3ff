package interfaces

import (
	"context"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Driver, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Driver, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Location operations
	UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location, at time.Time) error

	// Status operations. SetStatusIf only moves the driver when the current
	// status matches, so two dispatchers cannot both mark the same driver busy.
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error
	SetStatusIf(ctx context.Context, id primitive.ObjectID, from, to models.DriverStatus) (bool, error)

	// Geo queries against the 2dsphere index, used when the cache index
	// is unavailable
	GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Driver, error)

	// Supply counters for surge signals
	CountOnlineApproved(ctx context.Context) (int64, error)

	// Earnings and rating bookkeeping
	CreditEarnings(ctx context.Context, id primitive.ObjectID, amount float64) error
	ApplyRating(ctx context.Context, id primitive.ObjectID, rating float64, totalRatings int64) error

	List(ctx context.Context, params *utils.PaginationParams) ([]*models.Driver, int64, error)
}
