package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
	}
}

// Register creates a new account and sends the confirmation mail
// @Summary Register user
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterRequest true "Registration data"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Registration successful; check your email to confirm your account",
		Data:    user,
	})
}

// Login verifies credentials and issues a session token
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Credentials"
// @Success 200 {object} services.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmEmail consumes a confirmation token. It accepts both the GET
// link from the mail (query parameters) and a JSON POST from the
// frontend, so the same handler backs both routes.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	var req services.ConfirmEmailRequest
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request parameters",
				Details: err.Error(),
			})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.authService.ConfirmEmail(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Email confirmed",
		Data:    user,
	})
}
