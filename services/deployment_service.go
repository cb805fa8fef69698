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

// DeploymentService is the orchestrator: it triggers deployments and records
// lifecycle transitions as the platform reports them. It never invents a
// transition of its own.
type DeploymentService struct {
	projects    *ProjectService
	historyRepo *repositories.DeploymentHistoryRepository
	credentials *CredentialService
	registry    *providers.Registry
}

// NewDeploymentService creates a new deployment service instance
func NewDeploymentService(registry *providers.Registry, credentials *CredentialService, projects *ProjectService) *DeploymentService {
	return &DeploymentService{
		projects:    projects,
		historyRepo: repositories.NewDeploymentHistoryRepository(),
		credentials: credentials,
		registry:    registry,
	}
}

// Trigger starts one deployment attempt. The history row is bookkeeping:
// if its insert fails the trigger still succeeded upstream, so the caller
// gets the deployment id regardless.
func (s *DeploymentService) Trigger(ctx context.Context, projectID, userID string, req dto.DeployRequest) (*providers.DeployResult, error) {
	project, err := s.projects.getOwnedProject(projectID, userID)
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.GetCredentials(userID, project.Platform)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Get(project.Platform)
	if err != nil {
		return nil, NewValidation("%s", err.Error())
	}

	branch := req.Branch
	if branch == "" {
		branch = project.Repository.DefaultBranch
	}

	result, err := provider.Deploy(ctx, creds, project.ExternalProjectID, providers.DeployOptions{
		Branch:       branch,
		CommitSha:    req.CommitSha,
		IsProduction: req.IsProduction,
	})
	if err != nil {
		return nil, err
	}

	var commitSha *string
	if req.CommitSha != "" {
		sha := req.CommitSha
		commitSha = &sha
	}
	s.projects.recordTriggeredDeployment(project.ID, result, commitSha)

	return result, nil
}

// resolveDeployment finds the history row for an explicit platform deployment
// id, or the most recently started attempt when none is given.
func (s *DeploymentService) resolveDeployment(projectID, deploymentID string) (models.DeploymentHistory, error) {
	var history models.DeploymentHistory
	var err error
	if deploymentID != "" {
		history, err = s.historyRepo.FindByProjectAndExternalID(projectID, deploymentID)
	} else {
		history, err = s.historyRepo.FindLatestByProjectID(projectID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return history, NewNotFound("no deployment found for project %s", projectID)
	}
	return history, err
}

// GetStatus polls the platform for a deployment's status and reconciles the
// history row with whatever the platform reported.
func (s *DeploymentService) GetStatus(ctx context.Context, projectID, userID, deploymentID string) (models.DeploymentHistory, error) {
	project, err := s.projects.getOwnedProject(projectID, userID)
	if err != nil {
		return models.DeploymentHistory{}, err
	}

	history, err := s.resolveDeployment(project.ID, deploymentID)
	if err != nil {
		return models.DeploymentHistory{}, err
	}

	creds, err := s.credentials.GetCredentials(userID, project.Platform)
	if err != nil {
		return models.DeploymentHistory{}, err
	}

	provider, err := s.registry.Get(project.Platform)
	if err != nil {
		return models.DeploymentHistory{}, NewValidation("%s", err.Error())
	}

	status, err := provider.GetDeploymentStatus(ctx, creds, project.ExternalProjectID, history.ExternalDeploymentID)
	if err != nil {
		return models.DeploymentHistory{}, err
	}

	if err := s.ApplyStatus(&history, status); err != nil {
		return models.DeploymentHistory{}, err
	}
	return history, nil
}

// ApplyStatus reconciles one history row with a provider status report.
// Partial-update semantics: only fields the platform reported are written.
// Terminal states are never overwritten; a stale event arriving after
// completion is an idempotent no-op.
func (s *DeploymentService) ApplyStatus(history *models.DeploymentHistory, status *providers.DeploymentStatusResult) error {
	if history.Status.IsTerminal() {
		logStaleEvent(*history, status.Status)
		return nil
	}

	updates := map[string]interface{}{}
	if status.Status != "" && status.Status != history.Status {
		updates["status"] = status.Status
		history.Status = status.Status
	}
	if status.DeploymentURL != nil {
		updates["deployment_url"] = *status.DeploymentURL
		history.DeploymentURL = status.DeploymentURL
	}
	if status.PreviewURL != nil {
		updates["preview_url"] = *status.PreviewURL
		history.PreviewURL = status.PreviewURL
	}
	if status.ErrorMessage != nil {
		updates["error_message"] = *status.ErrorMessage
		history.ErrorMessage = status.ErrorMessage
	}
	if status.CompletedAt != nil {
		updates["completed_at"] = *status.CompletedAt
		history.CompletedAt = status.CompletedAt
	} else if status.Status.IsTerminal() && history.CompletedAt == nil {
		now := time.Now()
		updates["completed_at"] = now
		history.CompletedAt = &now
	}

	if len(updates) == 0 {
		return nil
	}
	return s.historyRepo.UpdateFields(history.ID, updates)
}

// GetLogs proxies build logs from the platform, forwarding the pagination
// cursor transparently.
func (s *DeploymentService) GetLogs(ctx context.Context, projectID, userID, deploymentID, cursor string) (*providers.LogsResult, error) {
	project, err := s.projects.getOwnedProject(projectID, userID)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Get(project.Platform)
	if err != nil {
		return nil, NewValidation("%s", err.Error())
	}
	if !provider.Capabilities().SupportsLogs {
		return nil, NewConflict("%s does not expose build logs", project.Platform)
	}

	history, err := s.resolveDeployment(project.ID, deploymentID)
	if err != nil {
		return nil, err
	}

	creds, err := s.credentials.GetCredentials(userID, project.Platform)
	if err != nil {
		return nil, err
	}

	return provider.GetDeploymentLogs(ctx, creds, project.ExternalProjectID, history.ExternalDeploymentID, cursor)
}

// ListHistory returns every recorded attempt for a project, newest first
func (s *DeploymentService) ListHistory(projectID, userID string) ([]models.DeploymentHistory, error) {
	project, err := s.projects.getOwnedProject(projectID, userID)
	if err != nil {
		return nil, err
	}
	return s.historyRepo.FindByProjectID(project.ID)
}

// logStaleEvent is a debug-level note for events that raced past completion
func logStaleEvent(history models.DeploymentHistory, status models.DeploymentStatus) {
	log.Printf("DEBUG: ignoring stale status %s for completed deployment %s", status, history.ExternalDeploymentID)
}
