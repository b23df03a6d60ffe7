package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/config"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

type HandlerManager struct {
	authHandler   *AuthHandler
	recordHandler *RecordHandler
	userHandler   *UserHandler
	middleware    *Middleware
	cfg           *config.Config
}

func NewHandlerManager(
	authHandler *AuthHandler,
	recordHandler *RecordHandler,
	userHandler *UserHandler,
	middleware *Middleware,
	cfg *config.Config,
) *HandlerManager {
	return &HandlerManager{
		authHandler:   authHandler,
		recordHandler: recordHandler,
		userHandler:   userHandler,
		middleware:    middleware,
		cfg:           cfg,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, logger utils.Logger) {
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(CORS(hm.cfg.AllowedOrigin))

	// Health check endpoint
	router.GET("/health", HealthCheck)

	api := router.Group("/api")
	{
		// Public authentication routes. The GET confirm route backs the
		// link delivered by mail; the POST variant backs the frontend.
		auth := api.Group("/auth")
		{
			auth.POST("/register", hm.authHandler.Register)
			auth.POST("/login", hm.authHandler.Login)
			auth.GET("/confirm-email", hm.authHandler.ConfirmEmail)
			auth.POST("/confirm-email", hm.authHandler.ConfirmEmail)
			auth.GET("/profile", hm.middleware.RequireAuth(), hm.userHandler.GetMe)
		}

		// Record routes. Reads and writes carry separately configured
		// role sets so a deployment can grant security staff read-only
		// access without code changes.
		records := api.Group("/records")
		records.Use(hm.middleware.RequireAuth(), hm.middleware.AuditActivity())
		{
			read := records.Group("", hm.middleware.RequireRoles(hm.cfg.RecordReadRoles...))
			{
				read.GET("", hm.recordHandler.ListRecords)
				read.GET("/export", hm.recordHandler.ExportRecords)
				read.GET("/:id", hm.recordHandler.GetRecord)
			}

			write := records.Group("", hm.middleware.RequireRoles(hm.cfg.RecordWriteRoles...))
			{
				write.POST("", hm.recordHandler.CreateRecord)
				write.PUT("/:id", hm.recordHandler.UpdateRecord)
				write.DELETE("/:id", hm.recordHandler.DeleteRecord)
				write.PATCH("/restore/:id", hm.recordHandler.RestoreRecord)
				write.GET("/deleted/all", hm.recordHandler.ListDeletedRecords)
			}
		}

		users := api.Group("/users")
		users.Use(hm.middleware.RequireAuth(), hm.middleware.AuditActivity())
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.PUT("/me", hm.userHandler.UpdateMe)
			users.PUT("/me/password", hm.userHandler.ChangePassword)
			users.DELETE("/me", hm.userHandler.DeleteMe)
			users.POST("/heartbeat", hm.userHandler.Heartbeat)
			users.GET("/me/activities", hm.userHandler.GetMyActivities)

			admin := users.Group("", hm.middleware.RequireRoles("admin"))
			{
				admin.GET("", hm.userHandler.ListUsers)
				admin.GET("/stats", hm.userHandler.GetStats)
				admin.GET("/:id", hm.userHandler.GetUser)
				admin.PUT("/:id", hm.userHandler.UpdateUserRole)
				admin.DELETE("/:id", hm.userHandler.DeleteUser)
				admin.GET("/:id/activities", hm.userHandler.GetUserActivities)
			}
		}
	}
}
