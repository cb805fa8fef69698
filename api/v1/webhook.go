package v1

import (
	"io"
	"log"
	"net/http"

	"github.com/blogdeploy/models"
	"github.com/blogdeploy/services"
	"github.com/gin-gonic/gin"
)

// WebhookController receives platform-pushed deployment events. These routes
// are unauthenticated: the signature over the raw body is the credential.
type WebhookController struct {
	webhookService *services.WebhookService
}

// NewWebhookController creates a new webhook controller
func NewWebhookController(webhookService *services.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

// RegisterRoutes registers webhook routes
func (w *WebhookController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/:platform", w.Receive)
}

// Receive godoc
// @Summary Receive a platform webhook
// @Description Verify the signature over the raw body, then acknowledge receipt. Processing failures are internal and never surfaced to the sender.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param platform path string true "Platform identifier"
// @Router /webhooks/{platform} [post]
func (w *WebhookController) Receive(c *gin.Context) {
	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Failed to read request body"})
		return
	}

	if err := w.webhookService.VerifySignature(platform, c.Request.Header, body); err != nil {
		respondError(c, err)
		return
	}

	// Acknowledge regardless of processing outcome so the platform does not
	// retry events we have already judged.
	if err := w.webhookService.Process(platform, body); err != nil {
		log.Printf("Failed to process %s webhook: %v", platform, err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
