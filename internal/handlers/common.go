package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps paginated collections.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error translation for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogError logs error details with request context
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"user_id", h.extractUserID(c),
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// parseIDParam reads a positive numeric path parameter; on failure it
// writes the 400 itself and returns 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps service-layer errors onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    "VALIDATION_ERROR",
		})
	case services.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: err.Error(),
			Code:    "UNAUTHORIZED",
		})
	case services.IsForbidden(err):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: err.Error(),
			Code:    "FORBIDDEN",
		})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
			Code:    "NOT_FOUND",
		})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Code:    "CONFLICT",
		})
	case errors.Is(err, services.ErrConfirmationExpired),
		errors.Is(err, services.ErrConfirmationInvalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: err.Error(),
			Code:    "CONFIRMATION_FAILED",
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
	}
}

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "discipline-service",
	})
}
