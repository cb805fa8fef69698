package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blogdeploy/models"
)

// CloudflarePagesProvider adapts the Cloudflare Pages API. Cloudflare scopes
// everything under an account id and wraps every response in a
// {success, errors, result} envelope. There is no OAuth flow for API tokens;
// users connect with a manually created token plus their account id.
type CloudflarePagesProvider struct {
	client  *apiClient
	baseURL string
}

// NewCloudflarePagesProvider creates the Cloudflare Pages adapter
func NewCloudflarePagesProvider() *CloudflarePagesProvider {
	return &CloudflarePagesProvider{
		client:  newAPIClient(models.PlatformCloudflarePages),
		baseURL: "https://api.cloudflare.com/client/v4",
	}
}

// Platform returns the platform identifier
func (p *CloudflarePagesProvider) Platform() models.Platform {
	return models.PlatformCloudflarePages
}

// Capabilities returns the static capability descriptor
func (p *CloudflarePagesProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxCustomDomains:           10,
		SupportsOAuth:              false,
		SupportsPreviewDeployments: true,
		SupportsLogs:               true,
		RequiresAccountID:          true,
	}
}

// cloudflareEnvelope is the standard v4 API response wrapper
type cloudflareEnvelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

// doEnvelope performs a request and unwraps the Cloudflare response envelope
func (p *CloudflarePagesProvider) doEnvelope(ctx context.Context, method, url string, creds Credentials, body, out interface{}) error {
	var envelope cloudflareEnvelope
	if err := p.client.doJSON(ctx, method, url, bearerHeader(creds.AccessToken), body, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		msg := "request rejected"
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		return &ProviderError{Platform: p.Platform(), Message: msg}
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &ProviderError{Platform: p.Platform(), Message: fmt.Sprintf("unexpected result shape: %v", err)}
		}
	}
	return nil
}

func (p *CloudflarePagesProvider) accountPath(creds Credentials, suffix string) string {
	return fmt.Sprintf("%s/accounts/%s/pages/projects%s", p.baseURL, creds.AccountID, suffix)
}

// GetAuthorizationURL is not applicable: Cloudflare API tokens are created manually
func (p *CloudflarePagesProvider) GetAuthorizationURL(redirectURI, state string) (string, error) {
	return "", ErrNotSupported
}

// ExchangeCodeForToken is not applicable: Cloudflare API tokens are created manually
func (p *CloudflarePagesProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error) {
	return "", ErrNotSupported
}

// ValidateToken verifies the API token and that an account id was supplied
func (p *CloudflarePagesProvider) ValidateToken(ctx context.Context, creds Credentials) error {
	if creds.AccountID == "" {
		return &ProviderError{Platform: p.Platform(), Message: "accountId is required for Cloudflare Pages"}
	}
	return p.doEnvelope(ctx, http.MethodGet, p.baseURL+"/user/tokens/verify", creds, nil, nil)
}

type cloudflareProject struct {
	Name      string   `json:"name"`
	Subdomain string   `json:"subdomain"`
	Domains   []string `json:"domains"`
}

func (c cloudflareProject) toInfo() *ProjectInfo {
	info := &ProjectInfo{
		ID:            c.Name,
		Name:          c.Name,
		ProductionURL: "https://" + c.Subdomain,
	}
	for _, d := range c.Domains {
		// The pages.dev subdomain is listed among domains; only user domains count
		if !strings.HasSuffix(d, ".pages.dev") {
			info.CustomDomains = append(info.CustomDomains, d)
		}
	}
	return info
}

// CreateProject creates a Pages project linked to the GitHub repository
func (p *CloudflarePagesProvider) CreateProject(ctx context.Context, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, error) {
	name := cfg.Name
	if name == "" {
		name = repoName
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	body := map[string]interface{}{
		"name":              name,
		"production_branch": branch,
		"source": map[string]interface{}{
			"type": "github",
			"config": map[string]interface{}{
				"owner":             repoOwner,
				"repo_name":         repoName,
				"production_branch": branch,
			},
		},
	}
	var project cloudflareProject
	if err := p.doEnvelope(ctx, http.MethodPost, p.accountPath(creds, ""), creds, body, &project); err != nil {
		return nil, err
	}
	return project.toInfo(), nil
}

// GetProject fetches a project snapshot
func (p *CloudflarePagesProvider) GetProject(ctx context.Context, creds Credentials, projectID string) (*ProjectInfo, error) {
	var project cloudflareProject
	if err := p.doEnvelope(ctx, http.MethodGet, p.accountPath(creds, "/"+projectID), creds, nil, &project); err != nil {
		return nil, err
	}
	return project.toInfo(), nil
}

// DeleteProject removes the Pages project
func (p *CloudflarePagesProvider) DeleteProject(ctx context.Context, creds Credentials, projectID string) error {
	return p.doEnvelope(ctx, http.MethodDelete, p.accountPath(creds, "/"+projectID), creds, nil, nil)
}

type cloudflareDeployment struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Environment string    `json:"environment"`
	CreatedOn   time.Time `json:"created_on"`
	ModifiedOn  time.Time `json:"modified_on"`
	LatestStage struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"latest_stage"`
}

// Deploy triggers a deployment of the configured branch
func (p *CloudflarePagesProvider) Deploy(ctx context.Context, creds Credentials, projectID string, opts DeployOptions) (*DeployResult, error) {
	body := map[string]interface{}{}
	if opts.Branch != "" {
		body["branch"] = opts.Branch
	}

	var deployment cloudflareDeployment
	err := p.doEnvelope(ctx, http.MethodPost, p.accountPath(creds, "/"+projectID+"/deployments"), creds, body, &deployment)
	if err != nil {
		return nil, err
	}

	result := &DeployResult{
		DeploymentID:  deployment.ID,
		DeploymentURL: deployment.URL,
	}
	if deployment.Environment == "preview" {
		result.PreviewURL = deployment.URL
	}
	return result, nil
}

// GetDeploymentStatus polls one deployment and normalizes its latest stage
func (p *CloudflarePagesProvider) GetDeploymentStatus(ctx context.Context, creds Credentials, projectID, deploymentID string) (*DeploymentStatusResult, error) {
	var deployment cloudflareDeployment
	err := p.doEnvelope(ctx, http.MethodGet, p.accountPath(creds, "/"+projectID+"/deployments/"+deploymentID), creds, nil, &deployment)
	if err != nil {
		return nil, err
	}

	result := &DeploymentStatusResult{
		Status:    mapCloudflareStage(deployment.LatestStage.Name, deployment.LatestStage.Status),
		CreatedAt: deployment.CreatedOn,
	}
	if deployment.URL != "" {
		u := deployment.URL
		if deployment.Environment == "production" {
			result.DeploymentURL = &u
		} else {
			result.PreviewURL = &u
		}
	}
	if result.Status.IsTerminal() {
		completed := deployment.ModifiedOn
		result.CompletedAt = &completed
	}
	if result.Status == models.DeploymentStatusFailed {
		msg := fmt.Sprintf("stage %s failed", deployment.LatestStage.Name)
		result.ErrorMessage = &msg
	}
	return result, nil
}

type cloudflareLogs struct {
	Total int `json:"total"`
	Data  []struct {
		Timestamp time.Time `json:"ts"`
		Line      string    `json:"line"`
	} `json:"data"`
}

// GetDeploymentLogs fetches build logs. Cloudflare returns the full log in one
// response, so the cursor is always empty and HasMore false.
func (p *CloudflarePagesProvider) GetDeploymentLogs(ctx context.Context, creds Credentials, projectID, deploymentID, cursor string) (*LogsResult, error) {
	var logs cloudflareLogs
	err := p.doEnvelope(ctx, http.MethodGet, p.accountPath(creds, "/"+projectID+"/deployments/"+deploymentID+"/history/logs"), creds, nil, &logs)
	if err != nil {
		return nil, err
	}

	result := &LogsResult{Logs: make([]LogLine, 0, len(logs.Data))}
	for _, line := range logs.Data {
		result.Logs = append(result.Logs, LogLine{
			Timestamp: line.Timestamp,
			Level:     "info",
			Message:   line.Line,
		})
	}
	return result, nil
}

// SetCustomDomain attaches a domain to the project
func (p *CloudflarePagesProvider) SetCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) (*DomainResult, error) {
	body := map[string]string{"name": domain}
	var attached struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := p.doEnvelope(ctx, http.MethodPost, p.accountPath(creds, "/"+projectID+"/domains"), creds, body, &attached); err != nil {
		return nil, err
	}

	records, _ := p.GetDNSInstructions(ctx, creds, projectID, domain)
	return &DomainResult{
		Configured: true,
		Verified:   attached.Status == "active",
		DNSRecords: records,
	}, nil
}

// GetDNSInstructions returns the record pointing the domain at the project
func (p *CloudflarePagesProvider) GetDNSInstructions(ctx context.Context, creds Credentials, projectID, domain string) ([]DnsRecord, error) {
	return []DnsRecord{{Type: "CNAME", Name: domain, Value: projectID + ".pages.dev"}}, nil
}

// RemoveCustomDomain detaches a domain from the project
func (p *CloudflarePagesProvider) RemoveCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) error {
	return p.doEnvelope(ctx, http.MethodDelete, p.accountPath(creds, "/"+projectID+"/domains/"+domain), creds, nil, nil)
}

func mapCloudflareStage(stage, status string) models.DeploymentStatus {
	switch status {
	case "canceled":
		return models.DeploymentStatusCancelled
	case "failure":
		return models.DeploymentStatusFailed
	case "active":
		return models.DeploymentStatusBuilding
	case "success":
		if stage == "deploy" {
			return models.DeploymentStatusSuccess
		}
		return models.DeploymentStatusBuilding
	case "idle":
		return models.DeploymentStatusPending
	}
	return models.DeploymentStatusPending
}
