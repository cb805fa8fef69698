package v1

import (
	"net/http"

	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/middleware"
	"github.com/blogdeploy/services"
	"github.com/gin-gonic/gin"
)

// ProjectController handles deployment project API endpoints
type ProjectController struct {
	projectService    *services.ProjectService
	deploymentService *services.DeploymentService
	limiter           *middleware.RateLimiter
}

// NewProjectController creates a new project controller
func NewProjectController(projectService *services.ProjectService, deploymentService *services.DeploymentService, limiter *middleware.RateLimiter) *ProjectController {
	return &ProjectController{
		projectService:    projectService,
		deploymentService: deploymentService,
		limiter:           limiter,
	}
}

// RegisterRoutes registers project routes. Deploy and domain mutations share
// a per-user rate limit.
func (p *ProjectController) RegisterRoutes(router *gin.RouterGroup) {
	throttled := middleware.RateLimitMiddleware(p.limiter)

	projects := router.Group("/projects")
	{
		projects.GET("", p.ListProjects)
		projects.POST("", p.CreateProject)
		projects.GET("/:id", p.GetProject)
		projects.DELETE("/:id", p.DeleteProject)

		projects.POST("/:id/deploy", throttled, p.Deploy)
		projects.GET("/:id/status", p.GetStatus)
		projects.GET("/:id/logs", p.GetLogs)
		projects.GET("/:id/deployments", p.ListDeployments)

		projects.GET("/:id/domains", p.ListDomains)
		projects.POST("/:id/domains", throttled, p.AddDomain)
		projects.DELETE("/:id/domains/:domain", throttled, p.RemoveDomain)
	}
}

// ListProjects godoc
// @Summary List the user's deployment projects
// @Tags projects
// @Produce json
// @Success 200 {array} models.DeploymentProject
// @Router /projects [get]
func (p *ProjectController) ListProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	projects, err := p.projectService.ListProjects(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   projects,
	})
}

// CreateProject godoc
// @Summary Create a deployment project with zero-config setup
// @Description Create the platform project, trigger its first deployment and persist the result
// @Tags projects
// @Accept json
// @Produce json
// @Param request body dto.CreateProjectRequest true "Project details"
// @Success 201 {object} models.DeploymentProject
// @Router /projects [post]
func (p *ProjectController) CreateProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	project, err := p.projectService.CreateProject(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Project created successfully",
		"data":    project,
	})
}

// GetProject godoc
// @Summary Get a deployment project by ID
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} models.DeploymentProject
// @Router /projects/{id} [get]
func (p *ProjectController) GetProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	project, err := p.projectService.GetProject(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   project,
	})
}

// DeleteProject godoc
// @Summary Delete a deployment project
// @Description Delete the platform project best-effort, then the local record
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Router /projects/{id} [delete]
func (p *ProjectController) DeleteProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := p.projectService.DeleteProject(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Project deleted successfully",
	})
}

// Deploy godoc
// @Summary Trigger a deployment
// @Tags deployments
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body dto.DeployRequest false "Deployment options"
// @Success 202 {object} providers.DeployResult
// @Router /projects/{id}/deploy [post]
func (p *ProjectController) Deploy(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.DeployRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Invalid request body",
				"error":   err.Error(),
			})
			return
		}
	}

	result, err := p.deploymentService.Trigger(c.Request.Context(), c.Param("id"), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "success",
		"message": "Deployment triggered",
		"data":    result,
	})
}

// GetStatus godoc
// @Summary Get deployment status
// @Description Poll the platform for the deployment's current status and return the reconciled record
// @Tags deployments
// @Produce json
// @Param id path string true "Project ID"
// @Param deploymentId query string false "Platform deployment ID (defaults to the latest attempt)"
// @Success 200 {object} models.DeploymentHistory
// @Router /projects/{id}/status [get]
func (p *ProjectController) GetStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	history, err := p.deploymentService.GetStatus(c.Request.Context(), c.Param("id"), userID, c.Query("deploymentId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   history,
	})
}

// GetLogs godoc
// @Summary Get deployment build logs
// @Tags deployments
// @Produce json
// @Param id path string true "Project ID"
// @Param deploymentId query string false "Platform deployment ID (defaults to the latest attempt)"
// @Param cursor query string false "Pagination cursor from a previous response"
// @Success 200 {object} providers.LogsResult
// @Router /projects/{id}/logs [get]
func (p *ProjectController) GetLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	logs, err := p.deploymentService.GetLogs(c.Request.Context(), c.Param("id"), userID, c.Query("deploymentId"), c.Query("cursor"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   logs,
	})
}

// ListDeployments godoc
// @Summary List deployment history for a project
// @Tags deployments
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} models.DeploymentHistory
// @Router /projects/{id}/deployments [get]
func (p *ProjectController) ListDeployments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	history, err := p.deploymentService.ListHistory(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   history,
	})
}

// ListDomains godoc
// @Summary List a project's custom domains
// @Tags domains
// @Produce json
// @Param id path string true "Project ID"
// @Router /projects/{id}/domains [get]
func (p *ProjectController) ListDomains(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	domains, err := p.projectService.ListDomains(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   domains,
	})
}

// AddDomain godoc
// @Summary Attach a custom domain to a project
// @Description Attach the domain on the platform and return the DNS records the user must create
// @Tags domains
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body dto.AddDomainRequest true "Domain to attach"
// @Success 201 {object} providers.DomainResult
// @Router /projects/{id}/domains [post]
func (p *ProjectController) AddDomain(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	result, err := p.projectService.AddDomain(c.Request.Context(), c.Param("id"), userID, req.Domain)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Domain attached successfully",
		"data":    result,
	})
}

// RemoveDomain godoc
// @Summary Detach a custom domain from a project
// @Tags domains
// @Produce json
// @Param id path string true "Project ID"
// @Param domain path string true "Domain to detach"
// @Router /projects/{id}/domains/{domain} [delete]
func (p *ProjectController) RemoveDomain(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := p.projectService.RemoveDomain(c.Request.Context(), c.Param("id"), userID, c.Param("domain")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Domain detached successfully",
	})
}
