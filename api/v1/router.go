package v1

import (
	"github.com/blogdeploy/middleware"
	"github.com/gin-gonic/gin"
)

// Controllers bundles every wired controller for route registration
type Controllers struct {
	OAuth        *OAuthController
	Platforms    *PlatformController
	Repositories *RepositoryController
	Projects     *ProjectController
	Webhooks     *WebhookController
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, controllers Controllers) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// Webhook endpoints - authenticated by signature, not by session
	controllers.Webhooks.RegisterRoutes(router)

	// Auth endpoints
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", Register)
		authGroup.POST("/login", Login)
		authGroup.POST("/logout", Logout)
		// Use auth middleware here only for the /me endpoint
		authGroup.GET("/me", middleware.AuthMiddleware(), GetCurrentUser)
	}

	// Everything else requires an authenticated user
	authRouter := router.Group("")
	authRouter.Use(middleware.AuthMiddleware())

	controllers.OAuth.RegisterRoutes(authRouter)
	controllers.Platforms.RegisterRoutes(authRouter)
	controllers.Repositories.RegisterRoutes(authRouter)
	controllers.Projects.RegisterRoutes(authRouter)
}
