package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gocargo/internal/models"
	"gocargo/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeGeocoder resolves every address to a fixed point near the test pickup.
type fakeGeocoder struct {
	geocodes int
	reverses int
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (*maps.GeocodeResponse, error) {
	g.geocodes++
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
		PlaceID: "place-" + address,
		Address: address,
		Coordinates: maps.Location{
			Latitude:  12.9716,
			Longitude: 77.5946,
		},
	}}}, nil
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*maps.GeocodeResponse, error) {
	g.reverses++
	return &maps.GeocodeResponse{Results: []maps.GeocodeResult{{
		Address:     "resolved address",
		Coordinates: maps.Location{Latitude: lat, Longitude: lng},
	}}}, nil
}

type bookingFixture struct {
	bookings *memBookingRepo
	drivers  *memDriverRepo
	geocoder *fakeGeocoder
	svc      BookingService
}

func newBookingFixture() *bookingFixture {
	bookings := newMemBookingRepo()
	drivers := newMemDriverRepo()
	geocoder := &fakeGeocoder{}
	pricing := NewPricingService(&memRuleRepo{}, newMemPromoRepo(), drivers, bookings, nil, testLogger())
	svc := NewBookingService(bookings, drivers, pricing, geocoder, nil, testLogger())
	return &bookingFixture{bookings: bookings, drivers: drivers, geocoder: geocoder, svc: svc}
}

func validCreateRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		UserID: primitive.NewObjectID(),
		Pickup: LocationInput{Latitude: 12.9716, Longitude: 77.5946, Address: "MG Road"},
		Drop:   LocationInput{Latitude: 13.0358, Longitude: 77.5970, Address: "Hebbal"},
		Cargo:  models.CargoDetails{Size: models.CargoSizeM, WeightKG: 12},
		PaymentMethod: "upi",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture()

	booking, err := f.svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if booking.Status != models.BookingStatusPending {
		t.Errorf("status = %s, want pending", booking.Status)
	}
	if !strings.HasPrefix(booking.BookingCode, "CRG-") {
		t.Errorf("booking code = %q, want CRG- prefix", booking.BookingCode)
	}
	if booking.DistanceKM <= 0 {
		t.Errorf("distance = %v, want positive", booking.DistanceKM)
	}
	if booking.Pricing == nil || booking.Pricing.Total <= 0 {
		t.Errorf("pricing = %+v, want a positive total", booking.Pricing)
	}
	if booking.OTP == nil || len(booking.OTP.Pickup) != 4 || len(booking.OTP.Drop) != 4 {
		t.Errorf("otp = %+v, want two 4-digit codes", booking.OTP)
	}
	if len(booking.Timeline) != 1 || booking.Timeline[0].Status != models.BookingStatusPending {
		t.Errorf("timeline = %+v, want single pending entry", booking.Timeline)
	}
	if booking.Payment.Status != models.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", booking.Payment.Status)
	}

	stored, err := f.bookings.GetByID(context.Background(), booking.ID)
	if err != nil {
		t.Fatalf("booking not persisted: %v", err)
	}
	if stored.BookingCode != booking.BookingCode {
		t.Error("persisted booking differs from returned booking")
	}
}

func TestCreateBookingGeocodesAddressOnlyPickup(t *testing.T) {
	f := newBookingFixture()

	req := validCreateRequest()
	req.Pickup = LocationInput{Address: "Koramangala 5th Block"}

	booking, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.geocoder.geocodes != 1 {
		t.Errorf("geocode calls = %d, want 1", f.geocoder.geocodes)
	}
	if booking.Pickup.PlaceID == "" {
		t.Error("pickup place id not captured from geocoder")
	}
}

func TestCreateBookingRejectsUnknownCargoSize(t *testing.T) {
	f := newBookingFixture()

	req := validCreateRequest()
	req.Cargo.Size = "xxl"

	_, err := f.svc.Create(context.Background(), req)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "cargo.size" {
		t.Errorf("field = %s, want cargo.size", validationErr.Field)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	f := newBookingFixture()
	booking, err := f.svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := f.svc.ConfirmPayment(context.Background(), booking.ID, "pay_ref_1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if first.Payment.Status != models.PaymentStatusCompleted || first.Payment.Reference != "pay_ref_1" {
		t.Fatalf("payment = %+v, want completed with pay_ref_1", first.Payment)
	}

	// A replayed callback must not overwrite the settled reference.
	second, err := f.svc.ConfirmPayment(context.Background(), booking.ID, "pay_ref_2")
	if err != nil {
		t.Fatalf("replayed ConfirmPayment: %v", err)
	}
	if second.Payment.Reference != "pay_ref_1" {
		t.Errorf("reference = %s, want original pay_ref_1", second.Payment.Reference)
	}
}

func TestRateFoldsIntoDriverAverage(t *testing.T) {
	f := newBookingFixture()
	driver := &models.Driver{
		UserID:       primitive.NewObjectID(),
		KYCStatus:    models.KYCStatusApproved,
		IsActive:     true,
		Status:       models.DriverStatusOnline,
		Rating:       4.0,
		TotalRatings: 9,
	}
	f.drivers.Create(context.Background(), driver)

	booking, _ := f.svc.Create(context.Background(), validCreateRequest())
	f.bookings.mu.Lock()
	stored := f.bookings.bookings[booking.ID]
	stored.Status = models.BookingStatusCompleted
	stored.DriverID = &driver.ID
	f.bookings.mu.Unlock()

	rated, err := f.svc.Rate(context.Background(), booking.ID, 5, "quick and careful")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rated.Rating == nil || rated.Rating.Score != 5 {
		t.Fatalf("rating = %+v, want score 5", rated.Rating)
	}

	updated, _ := f.drivers.GetByID(context.Background(), driver.ID)
	// (4.0*9 + 5) / 10 = 4.1
	if updated.Rating != 4.1 || updated.TotalRatings != 10 {
		t.Errorf("driver rating = %v over %d, want 4.1 over 10", updated.Rating, updated.TotalRatings)
	}

	// Only one rating per booking.
	if _, err := f.svc.Rate(context.Background(), booking.ID, 1, "oops"); err == nil {
		t.Error("second rating accepted, want rejection")
	}
}

func TestRateRequiresCompletedBooking(t *testing.T) {
	f := newBookingFixture()
	booking, _ := f.svc.Create(context.Background(), validCreateRequest())

	if _, err := f.svc.Rate(context.Background(), booking.ID, 4, ""); err == nil {
		t.Error("rating a pending booking succeeded, want rejection")
	}
	if _, err := f.svc.Rate(context.Background(), booking.ID, 7, ""); err == nil {
		t.Error("out-of-range score accepted, want rejection")
	}
}
