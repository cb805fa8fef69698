package v1

import (
	"errors"
	"net/http"

	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError maps a service-layer error onto the wire envelope. Local
// failures carry their own status and code; provider failures surface as 502
// so callers can tell our fault from the platform's.
func respondError(c *gin.Context, err error) {
	var apiErr *services.APIError
	if services.AsAPIError(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{
			"status":  "error",
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
		return
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"status":  "error",
			"code":    services.CodeUpstream,
			"message": providerErr.Error(),
		})
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"code":    services.CodeNotFound,
			"message": "Resource not found",
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Internal server error: " + err.Error(),
	})
}

// currentUserID reads the authenticated user id set by the auth middleware
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "User not authenticated"})
		return "", false
	}
	return userID.(string), true
}
