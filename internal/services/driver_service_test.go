package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocargo/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newDriverFixture() (*memDriverRepo, *memBookingRepo, DriverService) {
	drivers := newMemDriverRepo()
	bookings := newMemBookingRepo()
	geo := NewGeoService(drivers, newMemCache(), 10*time.Minute, testLogger())
	svc := NewDriverService(drivers, bookings, geo, testLogger())
	return drivers, bookings, svc
}

func approvedDriver(status models.DriverStatus) *models.Driver {
	return &models.Driver{
		UserID:    primitive.NewObjectID(),
		KYCStatus: models.KYCStatusApproved,
		IsActive:  true,
		Status:    status,
	}
}

func TestSetAvailabilityOnline(t *testing.T) {
	drivers, _, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusOffline)
	drivers.Create(context.Background(), driver)

	updated, err := svc.SetAvailability(context.Background(), driver.ID, true)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if updated.Status != models.DriverStatusOnline {
		t.Errorf("status = %s, want online", updated.Status)
	}
}

func TestSetAvailabilityRequiresApprovedKYC(t *testing.T) {
	drivers, _, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusOffline)
	driver.KYCStatus = models.KYCStatusPending
	drivers.Create(context.Background(), driver)

	_, err := svc.SetAvailability(context.Background(), driver.ID, true)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("error = %v, want ErrDriverUnavailable", err)
	}
}

func TestSetAvailabilityOfflineBlockedWhileBusy(t *testing.T) {
	drivers, bookings, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusBusy)
	drivers.Create(context.Background(), driver)

	bookings.Create(context.Background(), &models.Booking{
		UserID:   primitive.NewObjectID(),
		DriverID: &driver.ID,
		Status:   models.BookingStatusInTransit,
	})

	_, err := svc.SetAvailability(context.Background(), driver.ID, false)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("error = %v, want ErrDriverUnavailable while delivering", err)
	}
}

func TestSetAvailabilityOfflineAfterDeliveryDone(t *testing.T) {
	drivers, bookings, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusBusy)
	drivers.Create(context.Background(), driver)

	bookings.Create(context.Background(), &models.Booking{
		UserID:   primitive.NewObjectID(),
		DriverID: &driver.ID,
		Status:   models.BookingStatusCompleted,
	})

	updated, err := svc.SetAvailability(context.Background(), driver.ID, false)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if updated.Status != models.DriverStatusOffline {
		t.Errorf("status = %s, want offline", updated.Status)
	}
}

func TestSetAvailabilityOnlineReleasesBusyAfterDelivery(t *testing.T) {
	drivers, bookings, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusBusy)
	drivers.Create(context.Background(), driver)

	bookings.Create(context.Background(), &models.Booking{
		UserID:   primitive.NewObjectID(),
		DriverID: &driver.ID,
		Status:   models.BookingStatusCompleted,
	})

	updated, err := svc.SetAvailability(context.Background(), driver.ID, true)
	if err != nil {
		t.Fatalf("SetAvailability: %v", err)
	}
	if updated.Status != models.DriverStatusOnline {
		t.Errorf("status = %s, want online", updated.Status)
	}
}

func TestSetAvailabilityOnlineBlockedMidDelivery(t *testing.T) {
	drivers, bookings, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusBusy)
	drivers.Create(context.Background(), driver)

	bookings.Create(context.Background(), &models.Booking{
		UserID:   primitive.NewObjectID(),
		DriverID: &driver.ID,
		Status:   models.BookingStatusPickedUp,
	})

	_, err := svc.SetAvailability(context.Background(), driver.ID, true)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("error = %v, want ErrDriverUnavailable while delivering", err)
	}
}

// racingDriverRepo claims the driver right after each read, standing in for
// a dispatcher that wins the driver between the read and the conditional
// status write.
type racingDriverRepo struct {
	*memDriverRepo
	claimTo models.DriverStatus
}

func (r *racingDriverRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	driver, err := r.memDriverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.memDriverRepo.SetStatus(ctx, id, r.claimTo)
	return driver, nil
}

func TestSetAvailabilityLosesRaceToConcurrentClaim(t *testing.T) {
	drivers := newMemDriverRepo()
	bookings := newMemBookingRepo()
	racing := &racingDriverRepo{memDriverRepo: drivers, claimTo: models.DriverStatusBusy}
	geo := NewGeoService(drivers, newMemCache(), 10*time.Minute, testLogger())
	svc := NewDriverService(racing, bookings, geo, testLogger())

	driver := approvedDriver(models.DriverStatusOnline)
	drivers.Create(context.Background(), driver)

	_, err := svc.SetAvailability(context.Background(), driver.ID, false)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("error = %v, want ErrStatusConflict", err)
	}

	claimed, _ := drivers.GetByID(context.Background(), driver.ID)
	if claimed.Status != models.DriverStatusBusy {
		t.Errorf("status = %s, want the concurrent claim preserved", claimed.Status)
	}
}

func TestUpdateLocationRefreshesDriver(t *testing.T) {
	drivers, _, svc := newDriverFixture()
	driver := approvedDriver(models.DriverStatusOnline)
	drivers.Create(context.Background(), driver)

	if err := svc.UpdateLocation(context.Background(), driver.ID, 12.9716, 77.5946, "MG Road"); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}

	updated, _ := drivers.GetByID(context.Background(), driver.ID)
	if updated.CurrentLocation == nil {
		t.Fatal("location not stored")
	}
	if updated.CurrentLocation.Latitude() != 12.9716 || updated.CurrentLocation.Longitude() != 77.5946 {
		t.Errorf("stored coordinates = %v, want [77.5946 12.9716]", updated.CurrentLocation.Coordinates)
	}
	if updated.LastLocationUpdate == nil {
		t.Error("last location update timestamp not set")
	}
}
