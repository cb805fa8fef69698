package repositories

import (
	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
)

// DeploymentHistoryRepository handles database operations for deployment history
type DeploymentHistoryRepository struct{}

// NewDeploymentHistoryRepository creates a new deployment history repository instance
func NewDeploymentHistoryRepository() *DeploymentHistoryRepository {
	return &DeploymentHistoryRepository{}
}

// Create appends one deployment attempt
func (r *DeploymentHistoryRepository) Create(history models.DeploymentHistory) (models.DeploymentHistory, error) {
	result := database.DB.Create(&history)
	return history, result.Error
}

// FindByID retrieves one history row
func (r *DeploymentHistoryRepository) FindByID(id string) (models.DeploymentHistory, error) {
	var history models.DeploymentHistory
	result := database.DB.First(&history, "id = ?", id)
	return history, result.Error
}

// FindByProjectID retrieves the full history for a project, newest first
func (r *DeploymentHistoryRepository) FindByProjectID(projectID string) ([]models.DeploymentHistory, error) {
	var history []models.DeploymentHistory
	result := database.DB.Where("project_id = ?", projectID).
		Order("started_at DESC").
		Find(&history)
	return history, result.Error
}

// FindLatestByProjectID resolves the most recently started attempt for a project
func (r *DeploymentHistoryRepository) FindLatestByProjectID(projectID string) (models.DeploymentHistory, error) {
	var history models.DeploymentHistory
	result := database.DB.Where("project_id = ?", projectID).
		Order("started_at DESC").
		First(&history)
	return history, result.Error
}

// FindByProjectAndExternalID retrieves the row for a platform-assigned deployment id
func (r *DeploymentHistoryRepository) FindByProjectAndExternalID(projectID, externalID string) (models.DeploymentHistory, error) {
	var history models.DeploymentHistory
	result := database.DB.Where("project_id = ? AND external_deployment_id = ?", projectID, externalID).
		First(&history)
	return history, result.Error
}

// FindByPlatformAndExternalID matches a history row by platform and the
// platform-assigned deployment id, joining through the owning project.
// Used by the webhook ingestor.
func (r *DeploymentHistoryRepository) FindByPlatformAndExternalID(platform models.Platform, externalID string) (models.DeploymentHistory, error) {
	var history models.DeploymentHistory
	result := database.DB.
		Joins("JOIN deployment_projects ON deployment_projects.id = deployment_history.project_id").
		Where("deployment_projects.platform = ? AND deployment_history.external_deployment_id = ?", platform, externalID).
		First(&history)
	return history, result.Error
}

// UpdateFields applies a partial update to one history row. Only columns the
// provider actually reported appear in the map.
func (r *DeploymentHistoryRepository) UpdateFields(id string, updates map[string]interface{}) error {
	result := database.DB.Model(&models.DeploymentHistory{}).
		Where("id = ?", id).
		Updates(updates)
	return result.Error
}
