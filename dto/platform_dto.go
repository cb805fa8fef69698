package dto

import "github.com/blogdeploy/models"

// PlatformStatus describes one platform entry in the settings listing:
// display metadata, connection state and the static capability descriptor.
type PlatformStatus struct {
	Platform     models.Platform `json:"platform"`
	DisplayName  string          `json:"displayName"`
	Connected    bool            `json:"connected"`
	TeamID       *string         `json:"teamId,omitempty"`
	AccountID    *string         `json:"accountId,omitempty"`
	Capabilities interface{}     `json:"capabilities"`
}

// ConnectPlatformRequest is the manual credential-entry payload. The token is
// validated against the provider before anything is stored.
type ConnectPlatformRequest struct {
	Platform    string  `json:"platform" binding:"required"`
	AccessToken string  `json:"accessToken" binding:"required"`
	TeamID      *string `json:"teamId"`
	AccountID   *string `json:"accountId"`
}

// AuthorizationResponse is returned when initiating the OAuth flow
type AuthorizationResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	State            string `json:"state"`
}
