package handlers

import (
	"gocargo/internal/services"
	"gocargo/internal/utils"
	"gocargo/internal/validators"

	"github.com/gin-gonic/gin"
)

type DispatchHandler struct {
	dispatchService services.DispatchService
	driverService   services.DriverService
	stateMachine    services.StateMachineService
}

func NewDispatchHandler(dispatchService services.DispatchService, driverService services.DriverService, stateMachine services.StateMachineService) *DispatchHandler {
	return &DispatchHandler{
		dispatchService: dispatchService,
		driverService:   driverService,
		stateMachine:    stateMachine,
	}
}

// AutoAssign claims the best-ranked nearby driver for a pending booking.
func (h *DispatchHandler) AutoAssign(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.dispatchService.AutoAssign(c.Request.Context(), bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver assigned successfully", booking)
}

// ManualAssign claims a specific driver chosen by an operator.
func (h *DispatchHandler) ManualAssign(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.ManualAssignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	booking, err := h.dispatchService.ManualAssign(c.Request.Context(), bookingID, request.DriverID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver assigned successfully", booking)
}

// Broadcast offers a pending booking to every eligible driver in range.
func (h *DispatchHandler) Broadcast(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	drivers, err := h.dispatchService.Broadcast(c.Request.Context(), bookingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking broadcast successfully", gin.H{
		"offered_to": len(drivers),
		"drivers":    drivers,
	})
}

// MarkFailed lets an operator close out a pending booking that dispatch could
// not serve, for example after repeated broadcast rounds found no takers.
func (h *DispatchHandler) MarkFailed(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var request validators.DispatchFailRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		respondValidationErrors(c, errs)
		return
	}

	booking, err := h.stateMachine.Fail(c.Request.Context(), bookingID, request.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking marked as failed", booking)
}

// Accept is a driver taking a broadcast offer. The first accept wins the
// booking; later ones get a conflict.
func (h *DispatchHandler) Accept(c *gin.Context) {
	bookingID, ok := objectIDParam(c, "id")
	if !ok {
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

	booking, err := h.dispatchService.Accept(c.Request.Context(), bookingID, driver.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking accepted successfully", booking)
}
