package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocargo/internal/models"
	"gocargo/internal/utils"
	"gocargo/pkg/logger"
	"gocargo/pkg/push"
	"gocargo/pkg/sms"
	"gocargo/pkg/websocket"
)

// EventPublisher is the notification sink for the dispatch and booking
// cores. Delivery is best-effort: a failed notification never fails the
// state change that produced it.
type EventPublisher interface {
	BookingCreated(ctx context.Context, booking *models.Booking)
	DriverAssigned(ctx context.Context, booking *models.Booking, driver *models.Driver)
	BookingOffer(ctx context.Context, booking *models.Booking, drivers []*models.Driver)
	StatusChanged(ctx context.Context, booking *models.Booking, previous models.BookingStatus)
	BookingCancelled(ctx context.Context, booking *models.Booking)
	BookingCompleted(ctx context.Context, booking *models.Booking)
	PaymentSettled(ctx context.Context, booking *models.Booking)
}

type eventPublisher struct {
	hub    *websocket.Hub
	push   push.PushProvider
	sms    sms.SMSProvider
	cache  CacheService
	logger *logger.Logger
}

func NewEventPublisher(hub *websocket.Hub, pushProvider push.PushProvider, smsProvider sms.SMSProvider, cache CacheService, log *logger.Logger) EventPublisher {
	return &eventPublisher{
		hub:    hub,
		push:   pushProvider,
		sms:    smsProvider,
		cache:  cache,
		logger: log,
	}
}

func (p *eventPublisher) BookingCreated(ctx context.Context, booking *models.Booking) {
	p.emit(ctx, booking, utils.EventBookingCreated, map[string]interface{}{
		"booking_code": booking.BookingCode,
		"status":       booking.Status,
	})
	p.sendToUser(booking, utils.EventBookingCreated, map[string]interface{}{
		"booking_code": booking.BookingCode,
		"total":        bookingTotal(booking),
	})
}

func (p *eventPublisher) DriverAssigned(ctx context.Context, booking *models.Booking, driver *models.Driver) {
	payload := map[string]interface{}{
		"booking_code": booking.BookingCode,
		"driver_id":    driver.ID.Hex(),
		"driver_name":  driver.Name,
	}

	p.emit(ctx, booking, utils.EventDriverAssigned, payload)
	p.sendToUser(booking, utils.EventDriverAssigned, payload)

	if p.hub != nil {
		p.hub.SendToDriver(driver.ID, websocket.Message{
			Type:      utils.EventDriverAssigned,
			Timestamp: time.Now().Unix(),
			Data: map[string]interface{}{
				"booking_id":   booking.ID.Hex(),
				"booking_code": booking.BookingCode,
				"pickup":       booking.Pickup.Address,
				"drop":         booking.Drop.Address,
			},
		})
	}

	p.pushToDriver(ctx, driver, "New delivery assigned",
		fmt.Sprintf("Booking %s, pickup at %s", booking.BookingCode, booking.Pickup.Address),
		map[string]string{
			"booking_id": booking.ID.Hex(),
			"event":      utils.EventDriverAssigned,
		})

	p.smsToDriver(ctx, driver,
		fmt.Sprintf("GoCargo: booking %s assigned to you. Pickup: %s", booking.BookingCode, booking.Pickup.Address))
}

// BookingOffer fans the offer out to every candidate at once. A slow push
// gateway must not delay the other candidates; whoever sees the offer first
// should get the first shot at accepting.
func (p *eventPublisher) BookingOffer(ctx context.Context, booking *models.Booking, drivers []*models.Driver) {
	var wg sync.WaitGroup
	for _, driver := range drivers {
		wg.Add(1)
		go func(driver *models.Driver) {
			defer wg.Done()

			if p.hub != nil {
				p.hub.SendToDriver(driver.ID, websocket.Message{
					Type:      utils.EventBookingOffer,
					Timestamp: time.Now().Unix(),
					Data: map[string]interface{}{
						"booking_id":   booking.ID.Hex(),
						"booking_code": booking.BookingCode,
						"pickup":       booking.Pickup.Address,
						"drop":         booking.Drop.Address,
						"distance_km":  booking.DistanceKM,
						"cargo_size":   booking.Cargo.Size,
						"total":        bookingTotal(booking),
					},
				})
			}

			p.pushToDriver(ctx, driver, "New delivery nearby",
				fmt.Sprintf("Booking %s, %.1f km trip. First to accept wins.", booking.BookingCode, booking.DistanceKM),
				map[string]string{
					"booking_id": booking.ID.Hex(),
					"event":      utils.EventBookingOffer,
				})
		}(driver)
	}
	wg.Wait()
}

func (p *eventPublisher) StatusChanged(ctx context.Context, booking *models.Booking, previous models.BookingStatus) {
	payload := map[string]interface{}{
		"booking_code": booking.BookingCode,
		"from":         previous,
		"to":           booking.Status,
	}

	p.emit(ctx, booking, utils.EventStatusChanged, payload)
	p.sendToUser(booking, utils.EventStatusChanged, payload)

	if p.hub != nil && booking.DriverID != nil {
		p.hub.SendToDriver(*booking.DriverID, websocket.Message{
			Type:      utils.EventStatusChanged,
			Timestamp: time.Now().Unix(),
			Data:      payload,
		})
	}
}

func (p *eventPublisher) BookingCancelled(ctx context.Context, booking *models.Booking) {
	payload := map[string]interface{}{
		"booking_code": booking.BookingCode,
	}
	if booking.Cancellation != nil {
		payload["cancelled_by"] = booking.Cancellation.CancelledBy
		payload["refund_amount"] = booking.Cancellation.RefundAmount
	}

	p.emit(ctx, booking, utils.EventBookingCancelled, payload)
	p.sendToUser(booking, utils.EventBookingCancelled, payload)

	if p.hub != nil && booking.DriverID != nil {
		p.hub.SendToDriver(*booking.DriverID, websocket.Message{
			Type:      utils.EventBookingCancelled,
			Timestamp: time.Now().Unix(),
			Data:      payload,
		})
	}
}

func (p *eventPublisher) BookingCompleted(ctx context.Context, booking *models.Booking) {
	payload := map[string]interface{}{
		"booking_code": booking.BookingCode,
		"total":        bookingTotal(booking),
	}

	p.emit(ctx, booking, utils.EventBookingCompleted, payload)
	p.sendToUser(booking, utils.EventBookingCompleted, payload)
}

func (p *eventPublisher) PaymentSettled(ctx context.Context, booking *models.Booking) {
	payload := map[string]interface{}{
		"booking_code": booking.BookingCode,
		"total":        bookingTotal(booking),
		"method":       booking.Payment.Method,
	}

	p.emit(ctx, booking, utils.EventPaymentSettled, payload)
	p.sendToUser(booking, utils.EventPaymentSettled, payload)
}

// emit publishes to the booking room and the Redis event channel so other
// nodes can fan out to their own socket clients.
func (p *eventPublisher) emit(ctx context.Context, booking *models.Booking, event string, payload map[string]interface{}) {
	if p.hub != nil {
		p.hub.SendBookingUpdate(booking.ID, websocket.Message{
			Type:      event,
			Timestamp: time.Now().Unix(),
			Data:      payload,
		})
	}

	if p.cache != nil {
		message := map[string]interface{}{
			"event":      event,
			"booking_id": booking.ID.Hex(),
			"payload":    payload,
			"at":         time.Now().Unix(),
		}
		if err := p.cache.Publish(ctx, "events:bookings", message); err != nil {
			p.logger.WithBookingID(booking.ID).WithError(err).Debug("Event channel publish failed")
		}
	}
}

func (p *eventPublisher) sendToUser(booking *models.Booking, event string, payload map[string]interface{}) {
	if p.hub == nil {
		return
	}
	p.hub.SendToUser(booking.UserID, websocket.Message{
		Type:      event,
		Timestamp: time.Now().Unix(),
		Data:      payload,
	})
}

func (p *eventPublisher) pushToDriver(ctx context.Context, driver *models.Driver, title, body string, data map[string]string) {
	if p.push == nil || driver.DeviceToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, utils.NotificationTimeout)
	defer cancel()

	_, err := p.push.SendNotification(ctx, &push.NotificationRequest{
		Token:    driver.DeviceToken,
		Title:    title,
		Body:     body,
		Data:     data,
		Priority: "high",
	})
	if err != nil {
		p.logger.WithDriverID(driver.ID).WithError(err).Warn("Push notification failed")
	}
}

func (p *eventPublisher) smsToDriver(ctx context.Context, driver *models.Driver, message string) {
	if p.sms == nil || driver.Phone == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, utils.NotificationTimeout)
	defer cancel()

	_, err := p.sms.SendSMS(ctx, &sms.SMSRequest{
		To:      driver.Phone,
		Message: message,
		Type:    sms.TypeTransactional,
	})
	if err != nil {
		p.logger.WithDriverID(driver.ID).WithError(err).Warn("SMS notification failed")
	}
}

func bookingTotal(booking *models.Booking) float64 {
	if booking.Pricing == nil {
		return 0
	}
	return booking.Pricing.Total
}
