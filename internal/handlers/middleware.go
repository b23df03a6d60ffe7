package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

// Middleware bundles the request-gating concerns: session
// authentication, role authorization, CORS and activity auditing.
type Middleware struct {
	tokens      *auth.TokenService
	repo        repositories.Repository
	userService services.UserService
	logger      utils.Logger
}

func NewMiddleware(
	tokens *auth.TokenService,
	repo repositories.Repository,
	userService services.UserService,
	logger utils.Logger,
) *Middleware {
	return &Middleware{
		tokens:      tokens,
		repo:        repo,
		userService: userService,
		logger:      logger,
	}
}

// RequireAuth verifies the bearer session token and loads the caller.
// A token whose subject no longer exists is rejected the same way a
// bad token is; deleted accounts keep no live sessions.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			m.reject(c, "missing_token", "Authorization header is required")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			m.reject(c, "malformed_header", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := m.tokens.VerifySession(token)
		if err != nil {
			m.reject(c, reasonForTokenError(err), "Invalid or expired session token")
			return
		}

		user, err := m.repo.User().GetByID(c.Request.Context(), claims.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				m.reject(c, "stale_principal", "Invalid or expired session token")
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Message: "Internal server error",
			})
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_role", user.Role)
		c.Set("user", user)
		c.Next()
	}
}

func (m *Middleware) reject(c *gin.Context, reason, message string) {
	m.logger.Warn("request rejected",
		"reason", reason,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP())
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Message: message,
		Details: gin.H{"reason": reason},
		Code:    "UNAUTHORIZED",
	})
}

func reasonForTokenError(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired_token"
	case errors.Is(err, auth.ErrTokenSignature):
		return "bad_signature"
	case errors.Is(err, auth.ErrTokenAlgorithm):
		return "bad_algorithm"
	default:
		return "malformed_token"
	}
}

// RequireRoles allows only callers whose role is in the given set.
// Role strings from configuration are normalized through ParseRole, so
// casing in the env file does not matter.
func (m *Middleware) RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	required := make([]string, 0, len(roles))
	for _, role := range roles {
		if parsed, ok := models.ParseRole(role); ok && !allowed[parsed] {
			allowed[parsed] = true
			required = append(required, string(parsed))
		}
	}

	return func(c *gin.Context) {
		value, exists := c.Get("user_role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
				Details: gin.H{"reason": "missing_principal"},
				Code:    "UNAUTHORIZED",
			})
			return
		}

		role, ok := value.(models.UserRole)
		if !ok || !allowed[role] {
			// Role requirements are policy, not secrets; naming them
			// tells the caller which account kind the route needs.
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Insufficient permissions",
				Details: gin.H{"required_roles": required},
				Code:    "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// CORS handles cross-origin requests for the configured frontend origin.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AuditActivity records an audit row for authenticated mutating
// requests after the handler has run. Reads are not audited.
func (m *Middleware) AuditActivity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			return
		}
		userID, exists := c.Get("user_id")
		if !exists {
			return
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"status": c.Writer.Status(),
		})

		m.userService.RecordActivity(c.Request.Context(), &models.UserActivity{
			UserID:    userID.(uint),
			Action:    c.Request.Method + " " + c.FullPath(),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Metadata:  datatypes.JSON(metadata),
		})
	}
}
