package handlers

import (
	"gocargo/internal/models"
	"gocargo/internal/services"
	"gocargo/internal/utils"
	"gocargo/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingHandler struct {
	bookingService services.BookingService
	stateMachine   services.StateMachineService
	pricingService services.PricingService
	driverService  services.DriverService
}

func NewBookingHandler(
	bookingService services.BookingService,
	stateMachine services.StateMachineService,
	pricingService services.PricingService,
	driverService services.DriverService,
) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		stateMachine:   stateMachine,
		pricingService: pricingService,
		driverService:  driverService,
	}
}

// GetQuote prices a prospective booking without creating anything. The caller
// sends either an explicit distance or a pickup/drop pair.
func (h *BookingHandler) GetQuote(c *gin.Context) {
	var request validators.QuoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	distanceKM := request.DistanceKM
	if distanceKM <= 0 {
		if request.Pickup == nil || request.Drop == nil {
			utils.BadRequestResponse(c, "Provide distance_km or a pickup/drop pair")
			return
		}
		distanceKM = utils.CalculateDistance(
			request.Pickup.Latitude, request.Pickup.Longitude,
			request.Drop.Latitude, request.Drop.Longitude,
		)
	}

	quote, err := h.pricingService.Quote(c.Request.Context(), &services.QuoteRequest{
		DistanceKM:  distanceKM,
		CargoSize:   models.CargoSize(request.CargoSize),
		VehicleType: request.VehicleType,
		Express:     request.Express,
		Fragile:     request.Fragile,
		Insurance:   request.Insurance,
		PromoCode:   request.PromoCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Quote calculated successfully", gin.H{
		"distance_km": distanceKM,
		"fare":        quote,
	})
}

// CreateBooking creates a pending booking with a priced fare snapshot.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var request validators.CreateBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), &services.CreateBookingRequest{
		UserID: userID,
		Pickup: services.LocationInput{
			Latitude:  request.Pickup.Latitude,
			Longitude: request.Pickup.Longitude,
			Address:   request.Pickup.Address,
		},
		Drop: services.LocationInput{
			Latitude:  request.Drop.Latitude,
			Longitude: request.Drop.Longitude,
			Address:   request.Drop.Address,
		},
		Cargo: models.CargoDetails{
			Size:        models.CargoSize(request.CargoSize),
			WeightKG:    request.WeightKG,
			Fragile:     request.FragileCargo,
			Description: request.Description,
		},
		VehicleType:   request.VehicleType,
		Express:       request.Express,
		Insurance:     request.Insurance,
		PromoCode:     request.PromoCode,
		PaymentMethod: request.PaymentMethod,
		ScheduledAt:   request.ScheduledAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking created successfully", booking)
}

// GetBooking returns a booking to its owner, its assigned driver, or an admin.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.Get(c.Request.Context(), bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !h.canAccessBooking(c, booking) {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// GetBookingByCode looks a booking up by its human-readable code.
func (h *BookingHandler) GetBookingByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		utils.BadRequestResponse(c, "Invalid booking code")
		return
	}

	booking, err := h.bookingService.GetByCode(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !h.canAccessBooking(c, booking) {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// ListMyBookings returns the authenticated user's bookings, newest first.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.ListByUser(c.Request.Context(), userID, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Total:      total,
		Count:      len(bookings),
	}
	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", bookings, meta)
}

// Transition advances a booking along the delivery lifecycle. Cancellation
// goes through Cancel, not here.
func (h *BookingHandler) Transition(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.TransitionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	if h.userType(c) == "driver" {
		booking, err := h.bookingService.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if !h.isAssignedDriver(c, booking) {
			utils.ForbiddenResponse(c)
			return
		}
	}

	opts := &services.TransitionOptions{Note: request.Note}
	if request.Location != nil {
		loc := models.NewLocation(request.Location.Latitude, request.Location.Longitude, request.Location.Address)
		opts.Location = &loc
	}

	booking, err := h.stateMachine.Transition(c.Request.Context(), bookingID, models.BookingStatus(request.Status), opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking status updated successfully", booking)
}

// CancelBooking cancels a booking on behalf of its owner or an admin,
// refunding any captured payment.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.CancelBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	userType := h.userType(c)
	if userType != "admin" {
		booking, err := h.bookingService.Get(c.Request.Context(), bookingID)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		if booking.UserID != userID {
			utils.ForbiddenResponse(c)
			return
		}
	}

	booking, err := h.stateMachine.Cancel(c.Request.Context(), bookingID, userType, request.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking cancelled successfully", booking)
}

// ConfirmPayment is the payment collaborator's callback marking a booking's
// payment as captured. Idempotent for an already-settled booking.
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	booking, err := h.bookingService.ConfirmPayment(c.Request.Context(), bookingID, request.Reference)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment confirmed successfully", booking)
}

// RateBooking records the user's post-delivery rating and folds it into the
// driver's average.
func (h *BookingHandler) RateBooking(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.RateBookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	existing, err := h.bookingService.Get(c.Request.Context(), bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if existing.UserID != userID {
		utils.ForbiddenResponse(c)
		return
	}

	booking, err := h.bookingService.Rate(c.Request.Context(), bookingID, request.Score, request.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking rated successfully", booking)
}

func (h *BookingHandler) userType(c *gin.Context) string {
	if v, exists := c.Get("user_type"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (h *BookingHandler) canAccessBooking(c *gin.Context, booking *models.Booking) bool {
	userID, exists := c.Get("user_id")
	if !exists {
		return false
	}
	objectID, ok := userID.(primitive.ObjectID)
	if !ok {
		return false
	}

	switch h.userType(c) {
	case "admin":
		return true
	case "driver":
		return h.isAssignedDriver(c, booking)
	default:
		return booking.UserID == objectID
	}
}

func (h *BookingHandler) isAssignedDriver(c *gin.Context, booking *models.Booking) bool {
	if booking.DriverID == nil {
		return false
	}

	userID, exists := c.Get("user_id")
	if !exists {
		return false
	}
	objectID, ok := userID.(primitive.ObjectID)
	if !ok {
		return false
	}

	driver, err := h.driverService.GetByUserID(c.Request.Context(), objectID)
	if err != nil {
		return false
	}
	return driver.ID == *booking.DriverID
}
