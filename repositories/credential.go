package repositories

import (
	"time"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
	"gorm.io/gorm/clause"
)

// CredentialRepository handles database operations for platform credentials
type CredentialRepository struct{}

// NewCredentialRepository creates a new credential repository instance
func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{}
}

// FindByUserAndPlatform retrieves the credential for one (user, platform) pair
func (r *CredentialRepository) FindByUserAndPlatform(userID string, platform models.Platform) (models.PlatformCredential, error) {
	var credential models.PlatformCredential
	result := database.DB.Where("user_id = ? AND platform = ?", userID, platform).First(&credential)
	return credential, result.Error
}

// FindByUserID retrieves all credentials belonging to a user
func (r *CredentialRepository) FindByUserID(userID string) ([]models.PlatformCredential, error) {
	var credentials []models.PlatformCredential
	result := database.DB.Where("user_id = ?", userID).Find(&credentials)
	return credentials, result.Error
}

// Upsert inserts or updates the credential for a (user, platform) pair. The
// unique index makes concurrent connect calls idempotent: the second write
// wins with its token.
func (r *CredentialRepository) Upsert(credential models.PlatformCredential) (models.PlatformCredential, error) {
	credential.UpdatedAt = time.Now()
	result := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "team_id", "account_id", "updated_at"}),
	}).Create(&credential)
	return credential, result.Error
}

// Delete removes the credential for a (user, platform) pair
func (r *CredentialRepository) Delete(userID string, platform models.Platform) error {
	result := database.DB.Where("user_id = ? AND platform = ?", userID, platform).
		Delete(&models.PlatformCredential{})
	return result.Error
}
