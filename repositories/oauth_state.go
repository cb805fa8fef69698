package repositories

import (
	"time"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
)

// OAuthStateRepository handles database operations for OAuth CSRF states
type OAuthStateRepository struct{}

// NewOAuthStateRepository creates a new OAuth state repository instance
func NewOAuthStateRepository() *OAuthStateRepository {
	return &OAuthStateRepository{}
}

// Create persists a freshly issued state token
func (r *OAuthStateRepository) Create(state models.OAuthState) (models.OAuthState, error) {
	result := database.DB.Create(&state)
	return state, result.Error
}

// FindByState looks up a state token scoped to the user and platform that
// requested it. A token issued for one user/platform never matches another.
func (r *OAuthStateRepository) FindByState(state, userID string, platform models.Platform) (models.OAuthState, error) {
	var record models.OAuthState
	result := database.DB.Where("state = ? AND user_id = ? AND platform = ?", state, userID, platform).
		First(&record)
	return record, result.Error
}

// DeleteByID removes a state token by primary key
func (r *OAuthStateRepository) DeleteByID(id string) error {
	result := database.DB.Delete(&models.OAuthState{}, "id = ?", id)
	return result.Error
}

// DeleteExpired removes every state token past its expiry, returning the count
func (r *OAuthStateRepository) DeleteExpired() (int64, error) {
	result := database.DB.Where("expires_at < ?", time.Now()).Delete(&models.OAuthState{})
	return result.RowsAffected, result.Error
}
