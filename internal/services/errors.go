package services

import (
	"errors"
	"fmt"

	"gocargo/internal/models"
)

var (
	ErrBookingNotFound     = errors.New("booking not found")
	ErrDriverNotFound      = errors.New("driver not found")
	ErrPricingRuleNotFound = errors.New("pricing rule not found")
	ErrPromotionNotFound   = errors.New("promotion not found")

	// ErrAlreadyAssigned is returned when a claim loses the race for a
	// booking that already has a driver.
	ErrAlreadyAssigned = errors.New("booking already assigned")

	// ErrNoDriverAvailable is returned when dispatch finds no eligible
	// driver, including when the top candidate was taken concurrently.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrDriverUnavailable is returned when the named driver exists but
	// cannot take the booking right now.
	ErrDriverUnavailable = errors.New("driver unavailable")

	// ErrStatusConflict is returned by conditional writes that matched no
	// document because the status moved underneath them.
	ErrStatusConflict = errors.New("booking status changed concurrently")

	ErrEarningsAlreadyCredited = errors.New("earnings already credited")

	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// InvalidTransitionError reports a requested booking transition the state
// machine does not allow.
type InvalidTransitionError struct {
	From models.BookingStatus
	To   models.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError carries a field-level rejection of caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
