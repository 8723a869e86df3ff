package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gocargo/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stateMachineFixture struct {
	bookings *memBookingRepo
	drivers  *memDriverRepo
	wallet   *countingWallet
	svc      StateMachineService
}

func newStateMachineFixture() *stateMachineFixture {
	bookings := newMemBookingRepo()
	drivers := newMemDriverRepo()
	wallet := &countingWallet{}
	svc := NewStateMachineService(bookings, drivers, wallet, nil, 0.70, testLogger())
	return &stateMachineFixture{bookings: bookings, drivers: drivers, wallet: wallet, svc: svc}
}

func (f *stateMachineFixture) seedBooking(status models.BookingStatus, driverID *primitive.ObjectID) *models.Booking {
	booking := &models.Booking{
		BookingCode: "CRG-TEST0001",
		UserID:      primitive.NewObjectID(),
		DriverID:    driverID,
		Status:      status,
		Pricing:     &models.FareBreakdown{Total: 500, Currency: "INR"},
		Timeline:    []models.TimelineEntry{{Status: status, Timestamp: time.Now()}},
	}
	f.bookings.Create(context.Background(), booking)
	return booking
}

func (f *stateMachineFixture) seedBusyDriver() *models.Driver {
	driver := &models.Driver{
		UserID:    primitive.NewObjectID(),
		KYCStatus: models.KYCStatusApproved,
		IsActive:  true,
		Status:    models.DriverStatusBusy,
	}
	f.drivers.Create(context.Background(), driver)
	return driver
}

func TestTransitionFollowsAdjacency(t *testing.T) {
	f := newStateMachineFixture()
	driver := f.seedBusyDriver()
	booking := f.seedBooking(models.BookingStatusDriverAssigned, &driver.ID)

	sequence := []models.BookingStatus{
		models.BookingStatusDriverArrived,
		models.BookingStatusPickedUp,
		models.BookingStatusInTransit,
		models.BookingStatusReachedDestination,
		models.BookingStatusDelivered,
		models.BookingStatusCompleted,
	}

	for _, target := range sequence {
		updated, err := f.svc.Transition(context.Background(), booking.ID, target, nil)
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("status = %s, want %s", updated.Status, target)
		}
		last := updated.Timeline[len(updated.Timeline)-1]
		if last.Status != target {
			t.Fatalf("last timeline entry = %s, want %s", last.Status, target)
		}
	}
}

func TestTransitionRejectsSkippedState(t *testing.T) {
	f := newStateMachineFixture()
	booking := f.seedBooking(models.BookingStatusPickedUp, nil)

	_, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusDelivered, nil)

	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want *InvalidTransitionError", err)
	}
	if invalid.From != models.BookingStatusPickedUp || invalid.To != models.BookingStatusDelivered {
		t.Errorf("error reports %s -> %s, want picked_up -> delivered", invalid.From, invalid.To)
	}
}

func TestTransitionRejectsTerminalStates(t *testing.T) {
	f := newStateMachineFixture()
	booking := f.seedBooking(models.BookingStatusCompleted, nil)

	for _, target := range []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusInTransit,
		models.BookingStatusDelivered,
	} {
		if _, err := f.svc.Transition(context.Background(), booking.ID, target, nil); err == nil {
			t.Errorf("transition from completed to %s succeeded, want rejection", target)
		}
	}
}

func TestTransitionRefusesCancelTarget(t *testing.T) {
	f := newStateMachineFixture()
	booking := f.seedBooking(models.BookingStatusPending, nil)

	_, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusCancelled, nil)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError steering to Cancel", err)
	}
}

func TestCancelRefundsPaidBookingExactlyOnce(t *testing.T) {
	f := newStateMachineFixture()
	driver := f.seedBusyDriver()
	booking := f.seedBooking(models.BookingStatusDriverArrived, &driver.ID)
	f.bookings.Update(context.Background(), booking.ID, map[string]interface{}{
		"payment.status":    models.PaymentStatusCompleted,
		"payment.reference": "pay_abc123",
	})

	// Concurrent cancels: the conditional transition serializes them, so
	// only the winner reaches the refund instruction.
	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Cancel(context.Background(), booking.ID, "user", "changed plans")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Errorf("loser error = %v, want *InvalidTransitionError", err)
		}
	}
	if wins != 1 {
		t.Fatalf("cancel wins = %d, want exactly 1", wins)
	}

	if got := f.wallet.count(); got != 1 {
		t.Fatalf("refund instructions = %d, want exactly 1", got)
	}

	final, _ := f.bookings.GetByID(context.Background(), booking.ID)
	if final.Status != models.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", final.Status)
	}
	if final.Cancellation == nil || final.Cancellation.RefundAmount != 500 {
		t.Errorf("cancellation refund = %+v, want amount 500", final.Cancellation)
	}
	if final.Payment.Status != models.PaymentStatusRefunded {
		t.Errorf("payment status = %s, want refunded", final.Payment.Status)
	}

	freed, _ := f.drivers.GetByID(context.Background(), driver.ID)
	if freed.Status != models.DriverStatusBusy {
		t.Errorf("driver status = %s, want busy until they toggle availability", freed.Status)
	}
}

func TestCancelUnpaidBookingSkipsRefund(t *testing.T) {
	f := newStateMachineFixture()
	booking := f.seedBooking(models.BookingStatusPending, nil)

	updated, err := f.svc.Cancel(context.Background(), booking.ID, "user", "no longer needed")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if updated.Cancellation.RefundAmount != 0 {
		t.Errorf("refund amount = %v, want 0", updated.Cancellation.RefundAmount)
	}
	if f.wallet.count() != 0 {
		t.Errorf("refund instructions = %d, want 0", f.wallet.count())
	}
}

func TestCancelRejectedAfterPickup(t *testing.T) {
	f := newStateMachineFixture()

	for _, status := range []models.BookingStatus{
		models.BookingStatusPickedUp,
		models.BookingStatusInTransit,
		models.BookingStatusReachedDestination,
		models.BookingStatusDelivered,
		models.BookingStatusCompleted,
	} {
		booking := f.seedBooking(status, nil)
		if _, err := f.svc.Cancel(context.Background(), booking.ID, "user", "too late"); err == nil {
			t.Errorf("cancel from %s succeeded, want rejection", status)
		}
	}
}

func TestEarningsCreditedExactlyOnce(t *testing.T) {
	f := newStateMachineFixture()
	driver := f.seedBusyDriver()
	booking := f.seedBooking(models.BookingStatusDelivered, &driver.ID)

	if _, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusCompleted, nil); err != nil {
		t.Fatalf("first completed transition: %v", err)
	}

	// Duplicate delivery of the completed event: the transition is refused,
	// and even a direct replay of the side effect is blocked by the guard.
	if _, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusCompleted, nil); err == nil {
		t.Fatal("second completed transition succeeded, want rejection")
	}
	if credited, _ := f.bookings.MarkEarningsCredited(context.Background(), booking.ID); credited {
		t.Fatal("earnings guard flipped twice")
	}

	paid, _ := f.drivers.GetByID(context.Background(), driver.ID)
	want := 500 * 0.70
	if paid.TotalEarnings != want {
		t.Errorf("driver earnings = %v, want %v", paid.TotalEarnings, want)
	}
	if paid.CompletedDeliveries != 1 {
		t.Errorf("completed deliveries = %d, want 1", paid.CompletedDeliveries)
	}
	if paid.Status != models.DriverStatusBusy {
		t.Errorf("driver status = %s, want busy until they toggle availability", paid.Status)
	}
}

func TestCompletionLeavesDriverBusyUntilToggle(t *testing.T) {
	f := newStateMachineFixture()
	driver := f.seedBusyDriver()
	booking := f.seedBooking(models.BookingStatusDelivered, &driver.ID)

	if _, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusCompleted, nil); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}

	after, _ := f.drivers.GetByID(context.Background(), driver.ID)
	if after.Status != models.DriverStatusBusy {
		t.Fatalf("driver status = %s, want busy until their own toggle", after.Status)
	}

	// The driver's own availability toggle is the only path back to online.
	geo := NewGeoService(f.drivers, newMemCache(), 10*time.Minute, testLogger())
	driverSvc := NewDriverService(f.drivers, f.bookings, geo, testLogger())
	updated, err := driverSvc.SetAvailability(context.Background(), driver.ID, true)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if updated.Status != models.DriverStatusOnline {
		t.Errorf("status = %s, want online after toggle", updated.Status)
	}
}

func TestFailOnlyFromPending(t *testing.T) {
	f := newStateMachineFixture()
	pending := f.seedBooking(models.BookingStatusPending, nil)

	updated, err := f.svc.Fail(context.Background(), pending.ID, "no supply")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if updated.Status != models.BookingStatusFailed {
		t.Errorf("status = %s, want failed", updated.Status)
	}

	assigned := f.seedBooking(models.BookingStatusDriverAssigned, nil)
	if _, err := f.svc.Fail(context.Background(), assigned.ID, "nope"); err == nil {
		t.Error("fail from driver_assigned succeeded, want rejection")
	}
}

func TestConcurrentTransitionsSerialize(t *testing.T) {
	f := newStateMachineFixture()
	booking := f.seedBooking(models.BookingStatusInTransit, nil)

	const attempts = 6
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Transition(context.Background(), booking.ID, models.BookingStatusReachedDestination, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("transition wins = %d, want exactly 1", wins)
	}

	final, _ := f.bookings.GetByID(context.Background(), booking.ID)
	if len(final.Timeline) != 2 {
		t.Errorf("timeline length = %d, want 2 (no duplicate entries)", len(final.Timeline))
	}
}
