package repositories

import (
	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
)

// RepositoryRepository handles database operations for source repositories
type RepositoryRepository struct{}

// NewRepositoryRepository creates a new source repository store instance
func NewRepositoryRepository() *RepositoryRepository {
	return &RepositoryRepository{}
}

// FindByID retrieves a repository by its ID
func (r *RepositoryRepository) FindByID(id string) (models.Repository, error) {
	var repository models.Repository
	result := database.DB.First(&repository, "id = ?", id)
	return repository, result.Error
}

// FindByUserID retrieves all repositories belonging to a user
func (r *RepositoryRepository) FindByUserID(userID string) ([]models.Repository, error) {
	var repositories []models.Repository
	result := database.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&repositories)
	return repositories, result.Error
}

// Create inserts a new repository record
func (r *RepositoryRepository) Create(repository models.Repository) (models.Repository, error) {
	result := database.DB.Create(&repository)
	return repository, result.Error
}
