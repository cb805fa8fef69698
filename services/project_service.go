package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/repositories"
	"gorm.io/gorm"
)

// ProjectService is the registry over deployment projects: creation through
// the platform adapters, domain management and deletion, all scoped to the
// repositories the requesting user owns.
type ProjectService struct {
	projectRepo *repositories.DeploymentProjectRepository
	historyRepo *repositories.DeploymentHistoryRepository
	repoRepo    *repositories.RepositoryRepository
	credentials *CredentialService
	registry    *providers.Registry
}

// NewProjectService creates a new project service instance
func NewProjectService(registry *providers.Registry, credentials *CredentialService) *ProjectService {
	return &ProjectService{
		projectRepo: repositories.NewDeploymentProjectRepository(),
		historyRepo: repositories.NewDeploymentHistoryRepository(),
		repoRepo:    repositories.NewRepositoryRepository(),
		credentials: credentials,
		registry:    registry,
	}
}

// getOwnedProject loads a project and verifies the requesting user owns the
// backing repository. Ownership comes from the join, never from client input.
func (s *ProjectService) getOwnedProject(projectID, userID string) (models.DeploymentProject, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return project, NewNotFound("project %s not found", projectID)
		}
		return project, err
	}
	if project.Repository.UserID != userID {
		return project, NewForbidden("you do not own the repository backing this project")
	}
	return project, nil
}

// ListProjects returns all projects backed by the user's repositories
func (s *ProjectService) ListProjects(userID string) ([]models.DeploymentProject, error) {
	return s.projectRepo.FindByUserID(userID)
}

// GetProject returns one project after an ownership check
func (s *ProjectService) GetProject(projectID, userID string) (models.DeploymentProject, error) {
	return s.getOwnedProject(projectID, userID)
}

// CreateProject runs zero-config setup: creates the platform project, kicks
// off its first deployment and persists the result. Re-running setup for the
// same (repository, platform) pair updates the existing record.
func (s *ProjectService) CreateProject(ctx context.Context, userID string, req dto.CreateProjectRequest) (models.DeploymentProject, error) {
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return models.DeploymentProject{}, NewValidation("%s", err.Error())
	}

	repository, err := s.repoRepo.FindByID(req.RepositoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DeploymentProject{}, NewNotFound("repository %s not found", req.RepositoryID)
		}
		return models.DeploymentProject{}, err
	}
	if repository.UserID != userID {
		return models.DeploymentProject{}, NewForbidden("you do not own this repository")
	}

	creds, err := s.credentials.GetCredentials(userID, platform)
	if err != nil {
		return models.DeploymentProject{}, err
	}

	provider, err := s.registry.Get(platform)
	if err != nil {
		return models.DeploymentProject{}, NewValidation("%s", err.Error())
	}

	cfg := providers.ProjectConfig{Name: req.Name, Branch: repository.DefaultBranch}
	info, deploy, err := providers.AutoSetup(ctx, provider, creds, cfg, repository.Owner, repository.Name)
	if err != nil && info == nil {
		return models.DeploymentProject{}, err
	}
	if err != nil {
		// Project exists upstream but the first build failed to start
		log.Printf("First deployment for project %s on %s failed to start: %v", info.ID, platform, err)
	}

	project, err := s.projectRepo.Upsert(models.DeploymentProject{
		RepositoryID:      repository.ID,
		Platform:          platform,
		ExternalProjectID: info.ID,
		ProjectName:       info.Name,
		ProductionURL:     info.ProductionURL,
		CustomDomains:     info.CustomDomains,
		IsActive:          true,
	})
	if err != nil {
		return models.DeploymentProject{}, err
	}

	if deploy != nil {
		s.recordTriggeredDeployment(project.ID, deploy, nil)
	}

	return project, nil
}

// recordTriggeredDeployment appends a pending history row for a deployment we
// just triggered. Bookkeeping failure never fails the user-facing request:
// the deployment is already running upstream.
func (s *ProjectService) recordTriggeredDeployment(projectID string, deploy *providers.DeployResult, commitSha *string) {
	history := models.DeploymentHistory{
		ProjectID:            projectID,
		ExternalDeploymentID: deploy.DeploymentID,
		Status:               models.DeploymentStatusPending,
		TriggeredBy:          models.TriggerAPI,
		CommitSha:            commitSha,
		StartedAt:            time.Now(),
	}
	if deploy.DeploymentURL != "" {
		url := deploy.DeploymentURL
		history.DeploymentURL = &url
	}
	if deploy.PreviewURL != "" {
		url := deploy.PreviewURL
		history.PreviewURL = &url
	}
	if _, err := s.historyRepo.Create(history); err != nil {
		log.Printf("Failed to record deployment %s for project %s: %v", deploy.DeploymentID, projectID, err)
	}
}

// DeleteProject removes the platform project best-effort, then the local
// record unconditionally. Local bookkeeping must not get stuck because an
// upstream platform is unreachable.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, userID string) error {
	project, err := s.getOwnedProject(projectID, userID)
	if err != nil {
		return err
	}

	provider, err := s.registry.Get(project.Platform)
	if err == nil {
		creds, credErr := s.credentials.GetCredentials(userID, project.Platform)
		if credErr == nil {
			if delErr := provider.DeleteProject(ctx, creds, project.ExternalProjectID); delErr != nil {
				log.Printf("Best-effort deletion of %s project %s failed: %v", project.Platform, project.ExternalProjectID, delErr)
			}
		} else {
			log.Printf("Skipping upstream deletion of project %s: %v", projectID, credErr)
		}
	}

	return s.projectRepo.Delete(projectID)
}

// ListDomains returns the project's persisted custom domain list
func (s *ProjectService) ListDomains(projectID, userID string) ([]string, error) {
	project, err := s.getOwnedProject(projectID, userID)
	if err != nil {
		return nil, err
	}
	return project.CustomDomains, nil
}

// AddDomain attaches a custom domain. The platform call must succeed before
// the local list changes: the provider is the source of truth and the local
// list is a cache of it.
func (s *ProjectService) AddDomain(ctx context.Context, projectID, userID, domain string) (*providers.DomainResult, error) {
	project, err := s.getOwnedProject(projectID, userID)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Get(project.Platform)
	if err != nil {
		return nil, NewValidation("%s", err.Error())
	}

	capabilities := provider.Capabilities()
	if len(project.CustomDomains) >= capabilities.MaxCustomDomains {
		return nil, NewConflict("%s allows at most %d custom domain(s)", project.Platform, capabilities.MaxCustomDomains)
	}
	if project.HasDomain(domain) {
		return nil, NewConflict("domain %s is already attached to this project", domain)
	}

	creds, err := s.credentials.GetCredentials(userID, project.Platform)
	if err != nil {
		return nil, err
	}

	result, err := provider.SetCustomDomain(ctx, creds, project.ExternalProjectID, domain)
	if err != nil {
		return nil, err
	}

	domains := append(project.CustomDomains, domain)
	if err := s.projectRepo.UpdateDomains(project.ID, domains); err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveDomain detaches a custom domain, provider first, local list second
func (s *ProjectService) RemoveDomain(ctx context.Context, projectID, userID, domain string) error {
	project, err := s.getOwnedProject(projectID, userID)
	if err != nil {
		return err
	}
	if !project.HasDomain(domain) {
		return NewNotFound("domain %s is not attached to this project", domain)
	}

	provider, err := s.registry.Get(project.Platform)
	if err != nil {
		return NewValidation("%s", err.Error())
	}

	creds, err := s.credentials.GetCredentials(userID, project.Platform)
	if err != nil {
		return err
	}

	if err := provider.RemoveCustomDomain(ctx, creds, project.ExternalProjectID, domain); err != nil {
		return err
	}

	domains := make([]string, 0, len(project.CustomDomains))
	for _, d := range project.CustomDomains {
		if d != domain {
			domains = append(domains, d)
		}
	}
	return s.projectRepo.UpdateDomains(project.ID, domains)
}
