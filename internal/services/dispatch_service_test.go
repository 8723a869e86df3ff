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

type dispatchFixture struct {
	bookings *memBookingRepo
	drivers  *memDriverRepo
	svc      DispatchService
}

func newDispatchFixture() *dispatchFixture {
	bookings := newMemBookingRepo()
	drivers := newMemDriverRepo()
	geo := NewGeoService(drivers, nil, 10*time.Minute, testLogger())
	svc := NewDispatchService(bookings, drivers, geo, NewRankingService(), nil, nil, DispatchConfig{
		SearchRadiusKM:    10,
		BroadcastRadiusKM: 15,
		MaxCandidates:     50,
	}, testLogger())
	return &dispatchFixture{bookings: bookings, drivers: drivers, svc: svc}
}

// pickupPoint is central Bengaluru; driver offsets below are a few km away.
const (
	pickupLat = 12.9716
	pickupLng = 77.5946
)

func (f *dispatchFixture) seedPendingBooking() *models.Booking {
	booking := &models.Booking{
		BookingCode: "CRG-DISPATCH1",
		UserID:      primitive.NewObjectID(),
		Status:      models.BookingStatusPending,
		Pickup:      models.NewLocation(pickupLat, pickupLng, "MG Road"),
		Drop:        models.NewLocation(13.0358, 77.5970, "Hebbal"),
		Cargo:       models.CargoDetails{Size: models.CargoSizeM},
		Pricing:     &models.FareBreakdown{Total: 345, Currency: "INR"},
	}
	f.bookings.Create(context.Background(), booking)
	return booking
}

func (f *dispatchFixture) seedOnlineDriver(latOffset float64, rating float64, caps ...models.CargoSize) *models.Driver {
	now := time.Now()
	location := models.NewLocation(pickupLat+latOffset, pickupLng, "")
	if len(caps) == 0 {
		caps = []models.CargoSize{models.CargoSizeS, models.CargoSizeM, models.CargoSizeL}
	}
	driver := &models.Driver{
		UserID:             primitive.NewObjectID(),
		KYCStatus:          models.KYCStatusApproved,
		IsActive:           true,
		Status:             models.DriverStatusOnline,
		CurrentLocation:    &location,
		LastLocationUpdate: &now,
		Rating:             rating,
		TotalRatings:       20,
		CargoCapabilities:  caps,
	}
	f.drivers.Create(context.Background(), driver)
	return driver
}

func TestAutoAssignPicksBestCandidate(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	f.seedOnlineDriver(0.02, 3.0)
	best := f.seedOnlineDriver(0.01, 4.9)
	f.seedOnlineDriver(0.05, 4.0)

	updated, err := f.svc.AutoAssign(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}

	if updated.DriverID == nil || *updated.DriverID != best.ID {
		t.Fatalf("assigned driver = %v, want %s", updated.DriverID, best.ID.Hex())
	}
	if updated.Status != models.BookingStatusDriverAssigned {
		t.Errorf("status = %s, want driver_assigned", updated.Status)
	}

	claimed, _ := f.drivers.GetByID(context.Background(), best.ID)
	if claimed.Status != models.DriverStatusBusy {
		t.Errorf("winner status = %s, want busy", claimed.Status)
	}
}

func TestAutoAssignNoDrivers(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	_, err := f.svc.AutoAssign(context.Background(), booking.ID)
	if !errors.Is(err, ErrNoDriverAvailable) {
		t.Fatalf("error = %v, want ErrNoDriverAvailable", err)
	}
}

func TestAutoAssignSkipsStaleAndOfflineDrivers(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	stale := f.seedOnlineDriver(0.01, 5.0)
	old := time.Now().Add(-time.Hour)
	f.drivers.UpdateLocation(context.Background(), stale.ID, stale.CurrentLocation, old)

	offline := f.seedOnlineDriver(0.01, 5.0)
	f.drivers.SetStatus(context.Background(), offline.ID, models.DriverStatusOffline)

	eligible := f.seedOnlineDriver(0.03, 3.5)

	updated, err := f.svc.AutoAssign(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if *updated.DriverID != eligible.ID {
		t.Fatalf("assigned %s, want the only fresh online driver %s", updated.DriverID.Hex(), eligible.ID.Hex())
	}
}

func TestManualAssignOfflineDriverRejected(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()
	driver := f.seedOnlineDriver(0.01, 4.0)
	f.drivers.SetStatus(context.Background(), driver.ID, models.DriverStatusOffline)

	_, err := f.svc.ManualAssign(context.Background(), booking.ID, driver.ID)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("error = %v, want ErrDriverUnavailable", err)
	}

	unchanged, _ := f.bookings.GetByID(context.Background(), booking.ID)
	if unchanged.DriverID != nil {
		t.Error("booking gained a driver despite rejected assignment")
	}
}

func TestManualAssignAlreadyAssigned(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()
	first := f.seedOnlineDriver(0.01, 4.0)
	second := f.seedOnlineDriver(0.02, 4.5)

	if _, err := f.svc.ManualAssign(context.Background(), booking.ID, first.ID); err != nil {
		t.Fatalf("first ManualAssign: %v", err)
	}

	_, err := f.svc.ManualAssign(context.Background(), booking.ID, second.ID)
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("error = %v, want ErrAlreadyAssigned", err)
	}

	// The loser must not stay reserved.
	loser, _ := f.drivers.GetByID(context.Background(), second.ID)
	if loser.Status != models.DriverStatusOnline {
		t.Errorf("loser status = %s, want online", loser.Status)
	}
}

func TestConcurrentClaimsExactlyOneWinner(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	const contenders = 10
	drivers := make([]*models.Driver, contenders)
	for i := range drivers {
		drivers[i] = f.seedOnlineDriver(0.01+float64(i)*0.005, 4.0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for _, driver := range drivers {
		wg.Add(1)
		go func(d *models.Driver) {
			defer wg.Done()
			_, err := f.svc.ManualAssign(context.Background(), booking.ID, d.ID)
			errs <- err
		}(driver)
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyAssigned):
			losses++
		default:
			t.Errorf("unexpected claim error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("claim wins = %d, want exactly 1", wins)
	}
	if losses != contenders-1 {
		t.Fatalf("AlreadyAssigned losses = %d, want %d", losses, contenders-1)
	}

	final, _ := f.bookings.GetByID(context.Background(), booking.ID)
	if final.DriverID == nil {
		t.Fatal("booking has no driver after a winning claim")
	}

	// Exactly one driver ends busy, everyone else is back online.
	var busy int
	for _, driver := range drivers {
		current, _ := f.drivers.GetByID(context.Background(), driver.ID)
		if current.Status == models.DriverStatusBusy {
			busy++
			if current.ID != *final.DriverID {
				t.Errorf("busy driver %s is not the assigned one", current.ID.Hex())
			}
		}
	}
	if busy != 1 {
		t.Errorf("busy drivers = %d, want 1", busy)
	}
}

func TestBroadcastFirstAcceptWins(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	x := f.seedOnlineDriver(0.01, 4.0)
	y := f.seedOnlineDriver(0.02, 4.2)
	z := f.seedOnlineDriver(0.03, 4.4)

	offered, err := f.svc.Broadcast(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(offered) != 3 {
		t.Fatalf("offered to %d drivers, want 3", len(offered))
	}

	updated, err := f.svc.Accept(context.Background(), booking.ID, x.ID)
	if err != nil {
		t.Fatalf("first Accept: %v", err)
	}
	if *updated.DriverID != x.ID {
		t.Fatalf("winner = %s, want %s", updated.DriverID.Hex(), x.ID.Hex())
	}

	for _, late := range []*models.Driver{y, z} {
		if _, err := f.svc.Accept(context.Background(), booking.ID, late.ID); !errors.Is(err, ErrAlreadyAssigned) {
			t.Errorf("late accept by %s: error = %v, want ErrAlreadyAssigned", late.ID.Hex(), err)
		}
	}
}

func TestBroadcastRejectsAssignedBooking(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()
	driver := f.seedOnlineDriver(0.01, 4.0)

	if _, err := f.svc.ManualAssign(context.Background(), booking.ID, driver.ID); err != nil {
		t.Fatalf("ManualAssign: %v", err)
	}

	_, err := f.svc.Broadcast(context.Background(), booking.ID)
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("error = %v, want ErrAlreadyAssigned", err)
	}
}

func TestBroadcastNoEligibleDrivers(t *testing.T) {
	f := newDispatchFixture()
	booking := f.seedPendingBooking()

	// One driver far outside the broadcast radius.
	f.seedOnlineDriver(2.0, 5.0)

	_, err := f.svc.Broadcast(context.Background(), booking.ID)
	if !errors.Is(err, ErrNoDriverAvailable) {
		t.Fatalf("error = %v, want ErrNoDriverAvailable", err)
	}
}

func TestAcceptBusyDriverRejected(t *testing.T) {
	f := newDispatchFixture()
	first := f.seedPendingBooking()
	second := f.seedPendingBooking()
	driver := f.seedOnlineDriver(0.01, 4.0)

	if _, err := f.svc.Accept(context.Background(), first.ID, driver.ID); err != nil {
		t.Fatalf("first Accept: %v", err)
	}

	// The driver is busy with the first booking now.
	_, err := f.svc.Accept(context.Background(), second.ID, driver.ID)
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("error = %v, want ErrDriverUnavailable", err)
	}
}
