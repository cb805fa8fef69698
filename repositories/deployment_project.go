package repositories

import (
	"time"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeploymentProjectRepository handles database operations for deployment projects
type DeploymentProjectRepository struct{}

// NewDeploymentProjectRepository creates a new deployment project repository instance
func NewDeploymentProjectRepository() *DeploymentProjectRepository {
	return &DeploymentProjectRepository{}
}

// FindByID retrieves a project with its backing repository preloaded
func (r *DeploymentProjectRepository) FindByID(id string) (models.DeploymentProject, error) {
	var project models.DeploymentProject
	result := database.DB.Preload("Repository").First(&project, "id = ?", id)
	return project, result.Error
}

// FindByUserID retrieves all projects whose backing repository belongs to the user
func (r *DeploymentProjectRepository) FindByUserID(userID string) ([]models.DeploymentProject, error) {
	var projects []models.DeploymentProject
	result := database.DB.
		Joins("JOIN repositories ON repositories.id = deployment_projects.repository_id").
		Where("repositories.user_id = ?", userID).
		Order("deployment_projects.created_at DESC").
		Find(&projects)
	return projects, result.Error
}

// FindByPlatformAndExternalID matches a project by the platform-assigned id.
// Used by the webhook ingestor, which never sees local ids.
func (r *DeploymentProjectRepository) FindByPlatformAndExternalID(platform models.Platform, externalID string) (models.DeploymentProject, error) {
	var project models.DeploymentProject
	result := database.DB.Where("platform = ? AND external_project_id = ?", platform, externalID).
		First(&project)
	return project, result.Error
}

// Upsert inserts the project or, when the (repository, platform) pair already
// has one, refreshes it in place so re-running setup updates rather than duplicates.
func (r *DeploymentProjectRepository) Upsert(project models.DeploymentProject) (models.DeploymentProject, error) {
	project.UpdatedAt = time.Now()
	result := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "repository_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_project_id", "project_name", "production_url", "is_active", "updated_at",
		}),
	}).Create(&project)
	if result.Error != nil {
		return project, result.Error
	}

	// The insert id is discarded on conflict; re-read the surviving row
	var saved models.DeploymentProject
	err := database.DB.Where("repository_id = ? AND platform = ?", project.RepositoryID, project.Platform).
		First(&saved).Error
	return saved, err
}

// UpdateDomains replaces the persisted custom domain list
func (r *DeploymentProjectRepository) UpdateDomains(id string, domains []string) error {
	result := database.DB.Model(&models.DeploymentProject{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"custom_domains": domains,
			"updated_at":     time.Now(),
		})
	return result.Error
}

// Delete removes the project and its deployment history
func (r *DeploymentProjectRepository) Delete(id string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.DeploymentHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DeploymentProject{}, "id = ?", id).Error
	})
}

// SetActiveByExternalID flips the activation flag for a platform-matched
// project. Used when project lifecycle webhooks arrive.
func (r *DeploymentProjectRepository) SetActiveByExternalID(platform models.Platform, externalID string, active bool) error {
	result := database.DB.Model(&models.DeploymentProject{}).
		Where("platform = ? AND external_project_id = ?", platform, externalID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	return result.Error
}

// CountActiveByUserAndPlatform counts the user's active projects on a platform.
// Disconnecting a platform is blocked while this is non-zero.
func (r *DeploymentProjectRepository) CountActiveByUserAndPlatform(userID string, platform models.Platform) (int64, error) {
	var count int64
	result := database.DB.Model(&models.DeploymentProject{}).
		Joins("JOIN repositories ON repositories.id = deployment_projects.repository_id").
		Where("repositories.user_id = ? AND deployment_projects.platform = ? AND deployment_projects.is_active = ?", userID, platform, true).
		Count(&count)
	return count, result.Error
}
