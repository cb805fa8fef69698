package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/repositories"
	"github.com/blogdeploy/utils"
	"gorm.io/gorm"
)

// StateTTL bounds how long an issued OAuth state stays consumable
const StateTTL = 10 * time.Minute

// OAuthService runs the three-legged authorization flow for platforms that
// support it, guarding the callback with single-use CSRF state tokens.
type OAuthService struct {
	stateRepo   *repositories.OAuthStateRepository
	credentials *CredentialService
	registry    *providers.Registry
	cfg         *config.PlatformConfig
}

// NewOAuthService creates a new OAuth service instance
func NewOAuthService(registry *providers.Registry, credentials *CredentialService, cfg *config.PlatformConfig) *OAuthService {
	return &OAuthService{
		stateRepo:   repositories.NewOAuthStateRepository(),
		credentials: credentials,
		registry:    registry,
		cfg:         cfg,
	}
}

// IssueState generates, persists and returns a fresh single-use state token
func (s *OAuthService) IssueState(userID string, platform models.Platform) (models.OAuthState, error) {
	token, err := utils.GenerateStateToken()
	if err != nil {
		return models.OAuthState{}, fmt.Errorf("failed to generate state token: %w", err)
	}

	return s.stateRepo.Create(models.OAuthState{
		UserID:    userID,
		Platform:  platform,
		State:     token,
		ExpiresAt: time.Now().Add(StateTTL),
	})
}

// ConsumeState validates a callback state token. The token is deleted on
// lookup whether valid or expired, so it can never be replayed.
func (s *OAuthService) ConsumeState(state, userID string, platform models.Platform) bool {
	record, err := s.stateRepo.FindByState(state, userID, platform)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("OAuth state lookup failed: %v", err)
		}
		return false
	}

	// Single use: delete unconditionally once looked up
	if err := s.stateRepo.DeleteByID(record.ID); err != nil {
		log.Printf("Failed to delete consumed OAuth state: %v", err)
	}

	return time.Now().Before(record.ExpiresAt)
}

// redirectURI builds the callback URL registered with the platform's OAuth app
func (s *OAuthService) redirectURI(platform models.Platform) string {
	return fmt.Sprintf("%s/api/v1/oauth/%s/callback", s.cfg.BaseCallbackURL, platform)
}

// GetAuthorizationURL starts the flow: issues a state token and returns the
// platform's authorization URL with it embedded.
func (s *OAuthService) GetAuthorizationURL(userID string, platform models.Platform) (dto.AuthorizationResponse, error) {
	provider, err := s.registry.Get(platform)
	if err != nil {
		return dto.AuthorizationResponse{}, NewValidation("%s", err.Error())
	}
	if !provider.Capabilities().SupportsOAuth {
		return dto.AuthorizationResponse{}, NewConflict("platform %s does not support OAuth", platform)
	}

	state, err := s.IssueState(userID, platform)
	if err != nil {
		return dto.AuthorizationResponse{}, err
	}

	authorizationURL, err := provider.GetAuthorizationURL(s.redirectURI(platform), state.State)
	if err != nil {
		return dto.AuthorizationResponse{}, err
	}

	return dto.AuthorizationResponse{
		AuthorizationURL: authorizationURL,
		State:            state.State,
	}, nil
}

// HandleCallback completes the flow: verifies the state, exchanges the code
// and stores the resulting token. The code is never exchanged when state
// validation fails.
func (s *OAuthService) HandleCallback(ctx context.Context, userID string, platform models.Platform, code, state string) error {
	provider, err := s.registry.Get(platform)
	if err != nil {
		return NewValidation("%s", err.Error())
	}

	if !s.ConsumeState(state, userID, platform) {
		return NewValidation("Invalid state parameter")
	}

	accessToken, err := provider.ExchangeCodeForToken(ctx, code, s.redirectURI(platform))
	if err != nil {
		return err
	}

	return s.credentials.Connect(ctx, userID, platform, accessToken, nil, nil)
}

// CleanupExpiredStates sweeps expired state tokens; run periodically
func (s *OAuthService) CleanupExpiredStates() {
	count, err := s.stateRepo.DeleteExpired()
	if err != nil {
		log.Printf("Failed to clean up expired OAuth states: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Cleaned up %d expired OAuth state(s)", count)
	}
}
