package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/repositories"
	"gorm.io/gorm"
)

// CredentialService handles business logic for platform credentials
type CredentialService struct {
	credentialRepo *repositories.CredentialRepository
	projectRepo    *repositories.DeploymentProjectRepository
	registry       *providers.Registry
	cipher         TokenCipher
}

// NewCredentialService creates a new credential service instance. The cipher
// is the pluggable encryption-at-rest strategy applied to stored tokens.
func NewCredentialService(registry *providers.Registry, cipher TokenCipher) *CredentialService {
	return &CredentialService{
		credentialRepo: repositories.NewCredentialRepository(),
		projectRepo:    repositories.NewDeploymentProjectRepository(),
		registry:       registry,
		cipher:         cipher,
	}
}

// Connect validates a token against the platform and stores it. Calling
// connect again for the same (user, platform) pair replaces the stored token.
func (s *CredentialService) Connect(ctx context.Context, userID string, platform models.Platform, accessToken string, teamID, accountID *string) error {
	provider, err := s.registry.Get(platform)
	if err != nil {
		return NewValidation("%s", err.Error())
	}

	creds := providers.Credentials{AccessToken: accessToken}
	if teamID != nil {
		creds.TeamID = *teamID
	}
	if accountID != nil {
		creds.AccountID = *accountID
	}
	if err := provider.ValidateToken(ctx, creds); err != nil {
		return err
	}

	stored, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	_, err = s.credentialRepo.Upsert(models.PlatformCredential{
		UserID:      userID,
		Platform:    platform,
		AccessToken: stored,
		TeamID:      teamID,
		AccountID:   accountID,
	})
	return err
}

// GetCredentials resolves and decrypts the credential a provider call needs.
// A missing credential means the platform is not connected.
func (s *CredentialService) GetCredentials(userID string, platform models.Platform) (providers.Credentials, error) {
	credential, err := s.credentialRepo.FindByUserAndPlatform(userID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return providers.Credentials{}, NewNotFound("platform %s is not connected", platform)
		}
		return providers.Credentials{}, err
	}

	token, err := s.cipher.Decrypt(credential.AccessToken)
	if err != nil {
		return providers.Credentials{}, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	creds := providers.Credentials{AccessToken: token}
	if credential.TeamID != nil {
		creds.TeamID = *credential.TeamID
	}
	if credential.AccountID != nil {
		creds.AccountID = *credential.AccountID
	}
	return creds, nil
}

// ListStatuses returns every supported platform with its display metadata,
// connection state and capability descriptor.
func (s *CredentialService) ListStatuses(userID string) ([]dto.PlatformStatus, error) {
	credentials, err := s.credentialRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}

	connected := make(map[models.Platform]models.PlatformCredential, len(credentials))
	for _, credential := range credentials {
		connected[credential.Platform] = credential
	}

	statuses := make([]dto.PlatformStatus, 0, len(models.AllPlatforms))
	for _, platform := range models.AllPlatforms {
		provider, err := s.registry.Get(platform)
		if err != nil {
			return nil, err
		}
		status := dto.PlatformStatus{
			Platform:     platform,
			DisplayName:  platform.DisplayName(),
			Capabilities: provider.Capabilities(),
		}
		if credential, ok := connected[platform]; ok {
			status.Connected = true
			status.TeamID = credential.TeamID
			status.AccountID = credential.AccountID
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// GetStatus returns the connection state for one platform
func (s *CredentialService) GetStatus(userID string, platform models.Platform) (dto.PlatformStatus, error) {
	provider, err := s.registry.Get(platform)
	if err != nil {
		return dto.PlatformStatus{}, NewValidation("%s", err.Error())
	}

	status := dto.PlatformStatus{
		Platform:     platform,
		DisplayName:  platform.DisplayName(),
		Capabilities: provider.Capabilities(),
	}

	credential, err := s.credentialRepo.FindByUserAndPlatform(userID, platform)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status, nil
		}
		return dto.PlatformStatus{}, err
	}

	status.Connected = true
	status.TeamID = credential.TeamID
	status.AccountID = credential.AccountID
	return status, nil
}

// Disconnect deletes the stored credential. Blocked while the user still has
// active projects on the platform, so orphaned projects cannot appear.
func (s *CredentialService) Disconnect(userID string, platform models.Platform) error {
	if _, err := s.credentialRepo.FindByUserAndPlatform(userID, platform); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFound("platform %s is not connected", platform)
		}
		return err
	}

	activeProjects, err := s.projectRepo.CountActiveByUserAndPlatform(userID, platform)
	if err != nil {
		return err
	}
	if activeProjects > 0 {
		return NewConflict("cannot disconnect %s while %d active project(s) use it", platform, activeProjects)
	}

	return s.credentialRepo.Delete(userID, platform)
}
