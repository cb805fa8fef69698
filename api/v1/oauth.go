package v1

import (
	"net/http"
	"net/url"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/services"
	"github.com/gin-gonic/gin"
)

// OAuthController handles the three-legged OAuth flow endpoints
type OAuthController struct {
	oauthService *services.OAuthService
	cfg          *config.PlatformConfig
}

// NewOAuthController creates a new OAuth controller
func NewOAuthController(oauthService *services.OAuthService, cfg *config.PlatformConfig) *OAuthController {
	return &OAuthController{oauthService: oauthService, cfg: cfg}
}

// RegisterRoutes registers OAuth routes
func (o *OAuthController) RegisterRoutes(router *gin.RouterGroup) {
	oauth := router.Group("/oauth")
	{
		oauth.GET("/:platform", o.Authorize)
		oauth.GET("/:platform/callback", o.Callback)
	}
}

// Authorize godoc
// @Summary Start the OAuth flow for a platform
// @Description Issue a single-use state token and return the platform's authorization URL
// @Tags oauth
// @Produce json
// @Param platform path string true "Platform identifier"
// @Success 200 {object} dto.AuthorizationResponse
// @Router /oauth/{platform} [get]
func (o *OAuthController) Authorize(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	response, err := o.oauthService.GetAuthorizationURL(userID, platform)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   response,
	})
}

// Callback godoc
// @Summary Complete the OAuth flow
// @Description Verify the state token, exchange the code and store the credential, then redirect to the settings page
// @Tags oauth
// @Param platform path string true "Platform identifier"
// @Param code query string true "Authorization code"
// @Param state query string true "State token"
// @Router /oauth/{platform}/callback [get]
func (o *OAuthController) Callback(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	platform, err := models.ParsePlatform(c.Param("platform"))
	if err != nil {
		o.redirectWithError(c, err.Error())
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		o.redirectWithError(c, "Missing code or state parameter")
		return
	}

	if err := o.oauthService.HandleCallback(c.Request.Context(), userID, platform, code, state); err != nil {
		o.redirectWithError(c, err.Error())
		return
	}

	c.Redirect(http.StatusFound, o.cfg.SettingsURL+"?success=true&platform="+string(platform))
}

func (o *OAuthController) redirectWithError(c *gin.Context, message string) {
	c.Redirect(http.StatusFound, o.cfg.SettingsURL+"?error="+url.QueryEscape(message))
}
