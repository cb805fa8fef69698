package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	v1 "github.com/blogdeploy/api/v1"
	"github.com/blogdeploy/config"
	"github.com/blogdeploy/database"
	"github.com/blogdeploy/middleware"
	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/services"
	"golang.org/x/time/rate"
)

// tokenCipher picks the encryption-at-rest strategy for stored access tokens
func tokenCipher() services.TokenCipher {
	key := os.Getenv("TOKEN_ENCRYPTION_KEY")
	if key == "" {
		log.Println("⚠️ TOKEN_ENCRYPTION_KEY not set, storing access tokens unencrypted")
		return services.PlaintextCipher{}
	}
	cipher, err := services.NewFernetCipher(key)
	if err != nil {
		log.Fatalf("Invalid TOKEN_ENCRYPTION_KEY: %v", err)
	}
	return cipher
}

func main() {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	// Load environment and connect to the database
	config.LoadEnv()
	database.Initialize()

	platformConfig := config.LoadPlatformConfig()
	registry := providers.NewRegistry(platformConfig)

	// Wire services
	credentialService := services.NewCredentialService(registry, tokenCipher())
	oauthService := services.NewOAuthService(registry, credentialService, platformConfig)
	projectService := services.NewProjectService(registry, credentialService)
	deploymentService := services.NewDeploymentService(registry, credentialService, projectService)
	webhookService := services.NewWebhookService(deploymentService, platformConfig.WebhookSecrets)

	// Deploy and domain mutations: 10 operations per minute per user
	limiter := middleware.NewRateLimiter(rate.Every(6*time.Second), 10)

	controllers := v1.Controllers{
		OAuth:        v1.NewOAuthController(oauthService, platformConfig),
		Platforms:    v1.NewPlatformController(credentialService),
		Repositories: v1.NewRepositoryController(),
		Projects:     v1.NewProjectController(projectService, deploymentService, limiter),
		Webhooks:     v1.NewWebhookController(webhookService),
	}

	// Sweep expired OAuth state tokens in the background
	go func() {
		ticker := time.NewTicker(StateCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			oauthService.CleanupExpiredStates()
		}
	}()

	// Initialize router
	router := gin.Default()

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}))

	// Register v1 API routes
	v1.RegisterRoutes(router.Group("/api/v1"), controllers)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	log.Printf("🚀 BlogDeploy API starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// StateCleanupInterval is how often expired OAuth states are swept
const StateCleanupInterval = 5 * time.Minute
