package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint returns. RequestID mirrors the
// X-Request-ID header so clients can quote it in support tickets.
type APIResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type Meta struct {
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Total      int64           `json:"total,omitempty"`
	Count      int             `json:"count,omitempty"`
}

func write(c *gin.Context, statusCode int, resp APIResponse) {
	resp.RequestID = c.GetString("request_id")
	resp.Timestamp = time.Now().UTC()
	c.JSON(statusCode, resp)
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func SuccessResponseWithMeta(c *gin.Context, message string, data interface{}, meta *Meta) {
	write(c, http.StatusOK, APIResponse{Status: StatusSuccess, Message: message, Data: data, Meta: meta})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusCreated, APIResponse{Status: StatusSuccess, Message: message, Data: data})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	write(c, statusCode, APIResponse{Status: StatusError, Error: &APIError{Code: code, Message: message}})
}

func ErrorResponseWithDetails(c *gin.Context, statusCode int, code, message string, details map[string]string) {
	write(c, statusCode, APIResponse{Status: StatusError, Error: &APIError{Code: code, Message: message, Details: details}})
}

func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", ErrValidationFailed, errors)
}

func InternalServerErrorResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", ErrInternalServer)
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized)
}

func ForbiddenResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", ErrForbidden)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", resource+" not found")
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, "CONFLICT", message)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message)
}
