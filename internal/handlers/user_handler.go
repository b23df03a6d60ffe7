package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ===== SELF-SERVICE =====

// GetMe returns the authenticated user's profile
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetProfile(c.Request.Context(), h.callerID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe updates the authenticated user's profile
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), h.callerID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword rotates the caller's password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), h.callerID(c), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed"})
}

// DeleteMe removes the caller's own account
func (h *UserHandler) DeleteMe(c *gin.Context) {
	id := h.callerID(c)
	if err := h.userService.DeleteUser(c.Request.Context(), id, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Account deleted"})
}

// Heartbeat marks the caller as currently active
func (h *UserHandler) Heartbeat(c *gin.Context) {
	if err := h.userService.Heartbeat(c.Request.Context(), h.callerID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Heartbeat recorded"})
}

// GetMyActivities lists the caller's recent audit entries
func (h *UserHandler) GetMyActivities(c *gin.Context) {
	h.respondActivities(c, h.callerID(c))
}

// ===== ADMINISTRATION =====

// GetStats returns the dashboard user counters
// @Summary User statistics
// @Tags users
// @Produce json
// @Success 200 {object} repositories.UserStats
// @Router /users/stats [get]
func (h *UserHandler) GetStats(c *gin.Context) {
	stats, err := h.userService.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers lists every account
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: users, Total: int64(len(users))})
}

// GetUser returns one account by id
func (h *UserHandler) GetUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUserRole changes an account's role
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateUserRole(c.Request.Context(), h.callerID(c), id, req.Role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), h.callerID(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted"})
}

// GetUserActivities lists another account's audit entries
func (h *UserHandler) GetUserActivities(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	h.respondActivities(c, id)
}

// ===== HELPERS =====

func (h *UserHandler) callerID(c *gin.Context) uint {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

func (h *UserHandler) respondActivities(c *gin.Context, userID uint) {
	var filters repositories.ActivityFilters
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	for name, dest := range map[string]**time.Time{
		"from": &filters.From,
		"to":   &filters.To,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid " + name,
				Details: "use RFC3339",
			})
			return
		}
		*dest = &parsed
	}

	activities, err := h.userService.GetActivities(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: activities, Total: int64(len(activities))})
}
