package services

import (
	"context"
	"errors"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/repositories/interfaces"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"
	"gocargo/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// allowedNext is the exact booking status adjacency table. No skipping: a
// picked_up booking cannot jump to delivered without passing through
// in_transit and reached_destination.
var allowedNext = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusPending:            {models.BookingStatusDriverAssigned, models.BookingStatusCancelled, models.BookingStatusFailed},
	models.BookingStatusDriverAssigned:     {models.BookingStatusDriverArrived, models.BookingStatusCancelled},
	models.BookingStatusDriverArrived:      {models.BookingStatusPickedUp, models.BookingStatusCancelled},
	models.BookingStatusPickedUp:           {models.BookingStatusInTransit},
	models.BookingStatusInTransit:          {models.BookingStatusReachedDestination},
	models.BookingStatusReachedDestination: {models.BookingStatusDelivered},
	models.BookingStatusDelivered:          {models.BookingStatusCompleted},
	models.BookingStatusCompleted:          {},
	models.BookingStatusCancelled:          {},
	models.BookingStatusFailed:             {},
}

// cancellableStates are the pre-pickup states a booking may be cancelled from.
var cancellableStates = map[models.BookingStatus]bool{
	models.BookingStatusPending:        true,
	models.BookingStatusDriverAssigned: true,
	models.BookingStatusDriverArrived:  true,
}

// CanTransition reports whether the adjacency table allows from → to.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range allowedNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionOptions struct {
	Location *models.Location
	Note     string
}

// StateMachineService validates and records booking status transitions and
// runs their status-linked side effects.
type StateMachineService interface {
	Transition(ctx context.Context, bookingID primitive.ObjectID, target models.BookingStatus, opts *TransitionOptions) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID primitive.ObjectID, cancelledBy, reason string) (*models.Booking, error)
	Fail(ctx context.Context, bookingID primitive.ObjectID, reason string) (*models.Booking, error)
}

type stateMachineService struct {
	bookingRepo interfaces.BookingRepository
	driverRepo  interfaces.DriverRepository
	wallet      payment.WalletGateway
	publisher   EventPublisher
	driverShare float64
	logger      *logger.Logger
}

func NewStateMachineService(
	bookingRepo interfaces.BookingRepository,
	driverRepo interfaces.DriverRepository,
	wallet payment.WalletGateway,
	publisher EventPublisher,
	driverShare float64,
	log *logger.Logger,
) StateMachineService {
	if driverShare <= 0 || driverShare > 1 {
		driverShare = utils.DriverSharePercent
	}
	return &stateMachineService{
		bookingRepo: bookingRepo,
		driverRepo:  driverRepo,
		wallet:      wallet,
		publisher:   publisher,
		driverShare: driverShare,
		logger:      log,
	}
}

func (s *stateMachineService) Transition(ctx context.Context, bookingID primitive.ObjectID, target models.BookingStatus, opts *TransitionOptions) (*models.Booking, error) {
	if target == models.BookingStatusCancelled || target == models.BookingStatusFailed {
		return nil, NewValidationError("status", "use the cancel operation for terminal failure states")
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(booking.Status, target) {
		return nil, &InvalidTransitionError{From: booking.Status, To: target}
	}

	entry := models.TimelineEntry{
		Status:    target,
		Timestamp: time.Now(),
	}
	if opts != nil {
		entry.Location = opts.Location
		entry.Note = opts.Note
	}

	previous := booking.Status
	updated, err := s.bookingRepo.AppendTransition(ctx, bookingID, previous, entry, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Someone moved the booking first. Re-read so the error names
			// the real current state.
			current, readErr := s.bookingRepo.GetByID(ctx, bookingID)
			if readErr == nil {
				return nil, &InvalidTransitionError{From: current.Status, To: target}
			}
		}
		return nil, err
	}

	s.logger.LogBookingEvent(bookingID, utils.EventStatusChanged, map[string]interface{}{
		"from": previous,
		"to":   target,
	})

	if target == models.BookingStatusCompleted {
		s.onCompleted(ctx, updated)
		if s.publisher != nil {
			s.publisher.BookingCompleted(ctx, updated)
		}
	} else if s.publisher != nil {
		s.publisher.StatusChanged(ctx, updated, previous)
	}

	return updated, nil
}

func (s *stateMachineService) Cancel(ctx context.Context, bookingID primitive.ObjectID, cancelledBy, reason string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !cancellableStates[booking.Status] {
		return nil, &InvalidTransitionError{From: booking.Status, To: models.BookingStatusCancelled}
	}

	var refund float64
	if booking.Payment.Status == models.PaymentStatusCompleted && booking.Pricing != nil {
		refund = booking.Pricing.Total
	}

	cancellation := &models.Cancellation{
		CancelledBy:  cancelledBy,
		Reason:       reason,
		RefundAmount: refund,
		CancelledAt:  time.Now(),
	}

	entry := models.TimelineEntry{
		Status:    models.BookingStatusCancelled,
		Timestamp: cancellation.CancelledAt,
		Note:      reason,
	}

	extra := map[string]interface{}{"cancellation": cancellation}
	if refund > 0 {
		extra["payment.status"] = models.PaymentStatusRefunded
	}

	updated, err := s.bookingRepo.AppendTransition(ctx, bookingID, booking.Status, entry, extra)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			current, readErr := s.bookingRepo.GetByID(ctx, bookingID)
			if readErr == nil {
				return nil, &InvalidTransitionError{From: current.Status, To: models.BookingStatusCancelled}
			}
		}
		return nil, err
	}

	// The conditional write above serialized the cancellation, so exactly
	// one caller reaches the refund instruction.
	if refund > 0 && s.wallet != nil {
		_, err := s.wallet.RefundPayment(ctx, &payment.RefundRequest{
			TransactionID: booking.Payment.Reference,
			Amount:        refund,
			Currency:      booking.Pricing.Currency,
			Reason:        reason,
		})
		if err != nil {
			s.logger.WithBookingID(bookingID).WithError(err).Error("Refund instruction failed")
		}
	}

	s.logger.LogBookingEvent(bookingID, utils.EventBookingCancelled, map[string]interface{}{
		"cancelled_by": cancelledBy,
		"refund":       refund,
	})

	if s.publisher != nil {
		s.publisher.BookingCancelled(ctx, updated)
	}

	return updated, nil
}

func (s *stateMachineService) Fail(ctx context.Context, bookingID primitive.ObjectID, reason string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status != models.BookingStatusPending {
		return nil, &InvalidTransitionError{From: booking.Status, To: models.BookingStatusFailed}
	}

	entry := models.TimelineEntry{
		Status:    models.BookingStatusFailed,
		Timestamp: time.Now(),
		Note:      reason,
	}

	updated, err := s.bookingRepo.AppendTransition(ctx, bookingID, booking.Status, entry, nil)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.StatusChanged(ctx, updated, booking.Status)
	}

	return updated, nil
}

// onCompleted credits the driver their share of the fare. The earnings flag
// on the booking guards the credit, so a duplicate completed event cannot pay
// twice. The driver stays busy; re-opening availability is their own explicit
// toggle, never a side effect here.
func (s *stateMachineService) onCompleted(ctx context.Context, booking *models.Booking) {
	if booking.DriverID == nil {
		return
	}

	credited, err := s.bookingRepo.MarkEarningsCredited(ctx, booking.ID)
	if err != nil {
		s.logger.WithBookingID(booking.ID).WithError(err).Error("Earnings guard check failed")
		return
	}
	if !credited {
		s.logger.WithBookingID(booking.ID).Debug("Earnings already credited, skipping")
		return
	}

	amount := bookingTotal(booking) * s.driverShare
	if err := s.driverRepo.CreditEarnings(ctx, *booking.DriverID, amount); err != nil {
		s.logger.WithBookingID(booking.ID).WithError(err).Error("Failed to credit driver earnings")
	}
}
