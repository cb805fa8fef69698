package v1

import (
	"net/http"

	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/repositories"
	"github.com/gin-gonic/gin"
)

// RepositoryController handles source repository API endpoints
type RepositoryController struct {
	repoRepo *repositories.RepositoryRepository
}

// NewRepositoryController creates a new repository controller
func NewRepositoryController() *RepositoryController {
	return &RepositoryController{repoRepo: repositories.NewRepositoryRepository()}
}

// RegisterRoutes registers repository routes
func (r *RepositoryController) RegisterRoutes(router *gin.RouterGroup) {
	repos := router.Group("/repositories")
	{
		repos.GET("", r.ListRepositories)
		repos.POST("", r.RegisterRepository)
	}
}

// ListRepositories godoc
// @Summary List the user's registered repositories
// @Tags repositories
// @Produce json
// @Success 200 {array} models.Repository
// @Router /repositories [get]
func (r *RepositoryController) ListRepositories(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	repos, err := r.repoRepo.FindByUserID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   repos,
	})
}

// RegisterRepository godoc
// @Summary Register a source repository
// @Tags repositories
// @Accept json
// @Produce json
// @Param request body dto.RegisterRepositoryRequest true "Repository details"
// @Success 201 {object} models.Repository
// @Router /repositories [post]
func (r *RepositoryController) RegisterRepository(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.RegisterRepositoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	branch := req.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	repository, err := r.repoRepo.Create(models.Repository{
		UserID:        userID,
		Owner:         req.Owner,
		Name:          req.Name,
		DefaultBranch: branch,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Repository registered successfully",
		"data":    repository,
	})
}
