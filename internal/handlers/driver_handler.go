package handlers

import (
	"strconv"

	"gocargo/internal/services"
	"gocargo/internal/utils"
	"gocargo/internal/validators"

	"github.com/gin-gonic/gin"
)

type DriverHandler struct {
	driverService  services.DriverService
	bookingService services.BookingService
	geoService     services.GeoService
}

func NewDriverHandler(driverService services.DriverService, bookingService services.BookingService, geoService services.GeoService) *DriverHandler {
	return &DriverHandler{
		driverService:  driverService,
		bookingService: bookingService,
		geoService:     geoService,
	}
}

// GetDriver returns a driver's public profile.
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driverID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	driver, err := h.driverService.Get(c.Request.Context(), driverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver retrieved successfully", driver)
}

// ListDrivers returns a paginated driver roster.
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	drivers, total, err := h.driverService.List(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Total:      total,
		Count:      len(drivers),
	}
	utils.SuccessResponseWithMeta(c, "Drivers retrieved successfully", drivers, meta)
}

// NearbyDrivers returns eligible drivers around a point, nearest first.
func (h *DriverHandler) NearbyDrivers(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid longitude")
		return
	}
	if !utils.IsValidCoordinates(lat, lng) {
		utils.BadRequestResponse(c, "Coordinates out of range")
		return
	}

	radiusKM := utils.DefaultSearchRadiusKM
	if raw := c.Query("radius_km"); raw != "" {
		radiusKM, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKM <= 0 || radiusKM > utils.MaxSearchRadiusKM {
			utils.BadRequestResponse(c, "Invalid radius_km")
			return
		}
	}

	limit := utils.MaxNearbyCandidates
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > utils.MaxNearbyCandidates {
			utils.BadRequestResponse(c, "Invalid limit")
			return
		}
	}

	candidates, err := h.geoService.Nearby(c.Request.Context(), lat, lng, radiusKM, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	results := make([]gin.H, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, gin.H{
			"driver":      candidate.Driver,
			"distance_km": candidate.DistanceKM,
		})
	}

	utils.SuccessResponse(c, "Nearby drivers retrieved successfully", results)
}

// UpdateLocation stores the authenticated driver's current position.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var request validators.LocationUpdateRequest
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

	driver, err := h.driverService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.driverService.UpdateLocation(c.Request.Context(), driver.ID, request.Latitude, request.Longitude, request.Address); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated successfully", nil)
}

// SetAvailability flips the authenticated driver online or offline.
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var request validators.AvailabilityRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	driver, err := h.driverService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	updated, err := h.driverService.SetAvailability(c.Request.Context(), driver.ID, request.Online)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Availability updated successfully", updated)
}

// ListMyDeliveries returns the authenticated driver's booking history.
func (h *DriverHandler) ListMyDeliveries(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	driver, err := h.driverService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.ListByDriver(c.Request.Context(), driver.ID, params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Total:      total,
		Count:      len(bookings),
	}
	utils.SuccessResponseWithMeta(c, "Deliveries retrieved successfully", bookings, meta)
}
