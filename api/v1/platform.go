package v1

import (
	"net/http"

	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/services"
	"github.com/gin-gonic/gin"
)

// PlatformController handles platform connection API endpoints
type PlatformController struct {
	credentialService *services.CredentialService
}

// NewPlatformController creates a new platform controller
func NewPlatformController(credentialService *services.CredentialService) *PlatformController {
	return &PlatformController{credentialService: credentialService}
}

// RegisterRoutes registers platform routes
func (p *PlatformController) RegisterRoutes(router *gin.RouterGroup) {
	platforms := router.Group("/platforms")
	{
		platforms.GET("", p.ListPlatforms)
		platforms.POST("", p.ConnectPlatform)
		platforms.GET("/:platform", p.GetPlatform)
		platforms.DELETE("/:platform", p.DisconnectPlatform)
	}
}

// ListPlatforms godoc
// @Summary List all supported platforms
// @Description Get every supported platform with its capabilities and the user's connection state
// @Tags platforms
// @Produce json
// @Success 200 {array} dto.PlatformStatus
// @Router /platforms [get]
func (p *PlatformController) ListPlatforms(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	statuses, err := p.credentialService.ListStatuses(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   statuses,
	})
}

// ConnectPlatform godoc
// @Summary Connect a platform with a manually supplied token
// @Description Validate the access token against the platform and store it for the user
// @Tags platforms
// @Accept json
// @Produce json
// @Param request body dto.ConnectPlatformRequest true "Connection details"
// @Success 200 {object} dto.PlatformStatus
// @Router /platforms [post]
func (p *PlatformController) ConnectPlatform(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.ConnectPlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := p.credentialService.Connect(c.Request.Context(), userID, platform, req.AccessToken, req.TeamID, req.AccountID); err != nil {
		respondError(c, err)
		return
	}

	status, err := p.credentialService.GetStatus(userID, platform)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Platform connected successfully",
		"data":    status,
	})
}

// GetPlatform godoc
// @Summary Get one platform's connection state
// @Tags platforms
// @Produce json
// @Param platform path string true "Platform identifier"
// @Success 200 {object} dto.PlatformStatus
// @Router /platforms/{platform} [get]
func (p *PlatformController) GetPlatform(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	status, err := p.credentialService.GetStatus(userID, platform)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   status,
	})
}

// DisconnectPlatform godoc
// @Summary Disconnect a platform
// @Description Delete the stored credential. Refused while active projects still use the platform.
// @Tags platforms
// @Produce json
// @Param platform path string true "Platform identifier"
// @Router /platforms/{platform} [delete]
func (p *PlatformController) DisconnectPlatform(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if err := p.credentialService.Disconnect(userID, platform); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Platform disconnected successfully",
	})
}
