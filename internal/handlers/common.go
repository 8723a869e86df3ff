package handlers

import (
	"errors"
	"net/http"

	"gocargo/internal/services"
	"gocargo/internal/utils"
	"gocargo/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID pulls the authenticated user's ID set by the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	objectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}

	return objectID, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func respondValidationErrors(c *gin.Context, errs validators.ValidationErrors) {
	details := make(map[string]string, len(errs))
	for _, e := range errs {
		details[e.Field] = e.Message
	}
	utils.ValidationErrorResponse(c, details)
}

// respondServiceError maps the service error taxonomy onto HTTP responses.
// NoDriverAvailable stays distinguishable from DependencyUnavailable: the
// first means retry later, the second means the system is degraded.
func respondServiceError(c *gin.Context, err error) {
	var invalidTransition *services.InvalidTransitionError
	var validationErr *services.ValidationError

	switch {
	case errors.Is(err, services.ErrBookingNotFound):
		utils.NotFoundResponse(c, "Booking")
	case errors.Is(err, services.ErrDriverNotFound):
		utils.NotFoundResponse(c, "Driver")
	case errors.Is(err, services.ErrPricingRuleNotFound):
		utils.NotFoundResponse(c, "Pricing rule")
	case errors.Is(err, services.ErrPromotionNotFound):
		utils.NotFoundResponse(c, "Promotion")
	case errors.As(err, &invalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", invalidTransition.Error())
	case errors.Is(err, services.ErrAlreadyAssigned):
		utils.ErrorResponse(c, http.StatusConflict, "ALREADY_ASSIGNED", "Booking already has a driver assigned")
	case errors.Is(err, services.ErrNoDriverAvailable):
		utils.ErrorResponse(c, http.StatusConflict, "NO_DRIVER_AVAILABLE", "No driver available right now, try again shortly")
	case errors.Is(err, services.ErrDriverUnavailable):
		utils.ErrorResponse(c, http.StatusConflict, "DRIVER_UNAVAILABLE", "Driver is not available for this booking")
	case errors.Is(err, services.ErrStatusConflict):
		utils.ConflictResponse(c, "Booking status changed concurrently, reload and retry")
	case errors.Is(err, services.ErrEarningsAlreadyCredited):
		utils.ConflictResponse(c, "Earnings already credited for this booking")
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, map[string]string{validationErr.Field: validationErr.Message})
	case errors.Is(err, services.ErrDependencyUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", "A backing service is unreachable")
	default:
		utils.InternalServerErrorResponse(c)
	}
}
