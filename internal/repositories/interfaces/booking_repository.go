package interfaces

import (
	"context"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	GetByCode(ctx context.Context, code string) (*models.Booking, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Status operations. AppendTransition sets the new status and appends the
	// timeline entry in one conditional write filtered on the current status,
	// so concurrent transitions serialize on the document.
	AppendTransition(ctx context.Context, id primitive.ObjectID, from models.BookingStatus, entry models.TimelineEntry, extra map[string]interface{}) (*models.Booking, error)

	// ClaimDriver assigns the driver to a pending, unassigned booking in a
	// single conditional write. At most one concurrent caller succeeds.
	ClaimDriver(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID, vehicleID *primitive.ObjectID, entry models.TimelineEntry) (*models.Booking, error)

	// MarkEarningsCredited flips the one-shot earnings guard. Returns true
	// only for the call that actually flipped it.
	MarkEarningsCredited(ctx context.Context, id primitive.ObjectID) (bool, error)

	// Search and filtering
	GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetActiveBookings(ctx context.Context) ([]*models.Booking, error)
	GetPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Booking, error)

	// Counters used by the surge demand signal and driver guards
	CountByStatus(ctx context.Context, statuses ...models.BookingStatus) (int64, error)
	CountActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (int64, error)
}
