package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/blogdeploy/repositories"
	"github.com/blogdeploy/utils"
	"gorm.io/gorm"
)

// webhookEvent is the normalized form every platform payload parses into
type webhookEvent struct {
	ProjectRemoved       bool
	ProjectCreated       bool
	ExternalProjectID    string
	ExternalDeploymentID string
	Status               models.DeploymentStatus
	URL                  string
	ErrorMessage         string
	CommitSha            string
	CommitMessage        string
}

// WebhookService ingests platform-pushed deployment and project lifecycle
// events. Delivery is push-based, unordered and retried, so processing is
// idempotent and matches records by the platform's external ids only.
type WebhookService struct {
	projectRepo *repositories.DeploymentProjectRepository
	historyRepo *repositories.DeploymentHistoryRepository
	deployments *DeploymentService
	secrets     map[string]string
}

// NewWebhookService creates a new webhook service instance
func NewWebhookService(deployments *DeploymentService, secrets map[string]string) *WebhookService {
	return &WebhookService{
		projectRepo: repositories.NewDeploymentProjectRepository(),
		historyRepo: repositories.NewDeploymentHistoryRepository(),
		deployments: deployments,
		secrets:     secrets,
	}
}

func signatureError(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeSignature, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// VerifySignature authenticates the raw request body before any parsing.
// Comparison is constant time in every scheme.
func (s *WebhookService) VerifySignature(platform models.Platform, headers http.Header, body []byte) error {
	secret := s.secrets[string(platform)]
	if secret == "" {
		return signatureError("no webhook secret configured for %s", platform)
	}

	switch platform {
	case models.PlatformGitHubPages:
		signature := headers.Get("X-Hub-Signature-256")
		if signature == "" || !utils.VerifyHMACSHA256(body, secret, signature) {
			return signatureError("invalid webhook signature")
		}
	case models.PlatformVercel:
		signature := headers.Get("x-vercel-signature")
		if signature == "" || !utils.VerifyHMACSHA1(body, secret, signature) {
			return signatureError("invalid webhook signature")
		}
	case models.PlatformNetlify:
		signature := headers.Get("X-Webhook-Signature")
		if signature == "" || !utils.VerifyHMACSHA256(body, secret, signature) {
			return signatureError("invalid webhook signature")
		}
	case models.PlatformCloudflarePages:
		provided := headers.Get("cf-webhook-auth")
		if provided == "" || !utils.VerifySharedSecret(secret, provided) {
			return signatureError("invalid webhook signature")
		}
	default:
		return signatureError("unsupported webhook platform %s", platform)
	}
	return nil
}

// Process dispatches one verified event. Failures here are internal: the
// handler acknowledges receipt regardless and only logs what went wrong.
func (s *WebhookService) Process(platform models.Platform, body []byte) error {
	event, err := parseWebhookEvent(platform, body)
	if err != nil {
		return err
	}

	if event.ProjectRemoved {
		return s.projectRepo.SetActiveByExternalID(platform, event.ExternalProjectID, false)
	}
	if event.ProjectCreated {
		// Projects are registered locally before the platform announces them
		log.Printf("DEBUG: project.created webhook for %s project %s", platform, event.ExternalProjectID)
		return nil
	}
	if event.ExternalDeploymentID == "" {
		log.Printf("DEBUG: ignoring %s webhook without a deployment id", platform)
		return nil
	}

	history, err := s.historyRepo.FindByPlatformAndExternalID(platform, event.ExternalDeploymentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.recordUnknownDeployment(platform, event)
	}

	return s.deployments.ApplyStatus(&history, statusFromEvent(event))
}

// recordUnknownDeployment handles events whose deployment id we have never
// seen. Creation events for a locally registered project start a new history
// row; everything else is expected platform-wide noise and is ignored.
func (s *WebhookService) recordUnknownDeployment(platform models.Platform, event webhookEvent) error {
	if event.Status != models.DeploymentStatusPending || event.ExternalProjectID == "" {
		log.Printf("DEBUG: ignoring %s webhook for unknown deployment %s", platform, event.ExternalDeploymentID)
		return nil
	}

	project, err := s.projectRepo.FindByPlatformAndExternalID(platform, event.ExternalProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DEBUG: ignoring %s webhook for unknown project %s", platform, event.ExternalProjectID)
			return nil
		}
		return err
	}

	history := models.DeploymentHistory{
		ProjectID:            project.ID,
		ExternalDeploymentID: event.ExternalDeploymentID,
		Status:               models.DeploymentStatusPending,
		TriggeredBy:          models.TriggerWebhook,
		StartedAt:            time.Now(),
	}
	if event.CommitSha != "" {
		history.CommitSha = &event.CommitSha
	}
	if event.CommitMessage != "" {
		history.CommitMessage = &event.CommitMessage
	}
	_, err = s.historyRepo.Create(history)
	return err
}

// statusFromEvent converts a parsed event into the provider status shape the
// orchestrator already knows how to reconcile.
func statusFromEvent(event webhookEvent) *providers.DeploymentStatusResult {
	status := &providers.DeploymentStatusResult{Status: event.Status}
	if event.URL != "" {
		url := event.URL
		status.DeploymentURL = &url
	}
	if event.ErrorMessage != "" {
		msg := event.ErrorMessage
		status.ErrorMessage = &msg
	}
	return status
}

func parseWebhookEvent(platform models.Platform, body []byte) (webhookEvent, error) {
	switch platform {
	case models.PlatformVercel:
		return parseVercelEvent(body)
	case models.PlatformNetlify:
		return parseNetlifyEvent(body)
	case models.PlatformGitHubPages:
		return parseGitHubEvent(body)
	case models.PlatformCloudflarePages:
		return parseCloudflareEvent(body)
	}
	return webhookEvent{}, fmt.Errorf("unsupported webhook platform %s", platform)
}

func parseVercelEvent(body []byte) (webhookEvent, error) {
	var payload struct {
		Type    string `json:"type"`
		Payload struct {
			Deployment struct {
				ID   string `json:"id"`
				URL  string `json:"url"`
				Meta struct {
					GithubCommitSha     string `json:"githubCommitSha"`
					GithubCommitMessage string `json:"githubCommitMessage"`
				} `json:"meta"`
			} `json:"deployment"`
			Project struct {
				ID string `json:"id"`
			} `json:"project"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookEvent{}, fmt.Errorf("malformed vercel payload: %w", err)
	}

	event := webhookEvent{
		ExternalProjectID:    payload.Payload.Project.ID,
		ExternalDeploymentID: payload.Payload.Deployment.ID,
		CommitSha:            payload.Payload.Deployment.Meta.GithubCommitSha,
		CommitMessage:        payload.Payload.Deployment.Meta.GithubCommitMessage,
	}
	if payload.Payload.Deployment.URL != "" {
		event.URL = "https://" + payload.Payload.Deployment.URL
	}

	switch payload.Type {
	case "deployment.created":
		event.Status = models.DeploymentStatusPending
	case "deployment.succeeded":
		event.Status = models.DeploymentStatusSuccess
	case "deployment.error":
		event.Status = models.DeploymentStatusFailed
		event.ErrorMessage = "deployment failed"
	case "deployment.canceled":
		event.Status = models.DeploymentStatusCancelled
	case "project.created":
		event.ProjectCreated = true
	case "project.removed":
		event.ProjectRemoved = true
	default:
		return webhookEvent{}, fmt.Errorf("unhandled vercel event type %s", payload.Type)
	}
	return event, nil
}

func parseNetlifyEvent(body []byte) (webhookEvent, error) {
	// Netlify sends the deploy object itself; the state field carries the event
	var payload struct {
		ID           string `json:"id"`
		SiteID       string `json:"site_id"`
		State        string `json:"state"`
		SSLURL       string `json:"ssl_url"`
		ErrorMessage string `json:"error_message"`
		CommitRef    string `json:"commit_ref"`
		Title        string `json:"title"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookEvent{}, fmt.Errorf("malformed netlify payload: %w", err)
	}

	return webhookEvent{
		ExternalProjectID:    payload.SiteID,
		ExternalDeploymentID: payload.ID,
		Status:               mapNetlifyWebhookState(payload.State),
		URL:                  payload.SSLURL,
		ErrorMessage:         payload.ErrorMessage,
		CommitSha:            payload.CommitRef,
		CommitMessage:        payload.Title,
	}, nil
}

func parseGitHubEvent(body []byte) (webhookEvent, error) {
	var payload struct {
		ID    int64 `json:"id"`
		Build struct {
			Status string `json:"status"`
			Commit string `json:"commit"`
			Error  struct {
				Message *string `json:"message"`
			} `json:"error"`
		} `json:"build"`
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookEvent{}, fmt.Errorf("malformed github payload: %w", err)
	}

	event := webhookEvent{
		ExternalProjectID:    payload.Repository.FullName,
		ExternalDeploymentID: strconv.FormatInt(payload.ID, 10),
		Status:               mapGitHubWebhookStatus(payload.Build.Status),
		CommitSha:            payload.Build.Commit,
	}
	if payload.Build.Error.Message != nil {
		event.ErrorMessage = *payload.Build.Error.Message
	}
	return event, nil
}

func parseCloudflareEvent(body []byte) (webhookEvent, error) {
	var payload struct {
		Event      string `json:"event"`
		Deployment struct {
			ID          string `json:"id"`
			ProjectName string `json:"project_name"`
			URL         string `json:"url"`
		} `json:"deployment"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return webhookEvent{}, fmt.Errorf("malformed cloudflare payload: %w", err)
	}

	event := webhookEvent{
		ExternalProjectID:    payload.Deployment.ProjectName,
		ExternalDeploymentID: payload.Deployment.ID,
		URL:                  payload.Deployment.URL,
	}
	switch payload.Event {
	case "deployment.created":
		event.Status = models.DeploymentStatusPending
	case "deployment.building":
		event.Status = models.DeploymentStatusBuilding
	case "deployment.success":
		event.Status = models.DeploymentStatusSuccess
	case "deployment.failure":
		event.Status = models.DeploymentStatusFailed
		event.ErrorMessage = "deployment failed"
	case "deployment.canceled":
		event.Status = models.DeploymentStatusCancelled
	case "project.deleted":
		event.ProjectRemoved = true
	default:
		return webhookEvent{}, fmt.Errorf("unhandled cloudflare event %s", payload.Event)
	}
	return event, nil
}

func mapNetlifyWebhookState(state string) models.DeploymentStatus {
	switch state {
	case "new", "enqueued", "pending_review":
		return models.DeploymentStatusPending
	case "building", "uploading", "uploaded", "preparing", "prepared", "processing":
		return models.DeploymentStatusBuilding
	case "ready", "current":
		return models.DeploymentStatusSuccess
	case "error":
		return models.DeploymentStatusFailed
	case "deleted", "skipped":
		return models.DeploymentStatusCancelled
	}
	return models.DeploymentStatusPending
}

func mapGitHubWebhookStatus(status string) models.DeploymentStatus {
	switch status {
	case "queued":
		return models.DeploymentStatusPending
	case "building":
		return models.DeploymentStatusBuilding
	case "built":
		return models.DeploymentStatusSuccess
	case "errored":
		return models.DeploymentStatusFailed
	}
	return models.DeploymentStatusPending
}
