package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/models"
)

// VercelProvider adapts the Vercel REST API. Vercel has first-class projects
// with an async build pipeline; deployments and domains hang off the project.
// Team-scoped credentials add a teamId query parameter to every call.
type VercelProvider struct {
	client   *apiClient
	oauth    config.OAuthCredentials
	baseURL  string
	oauthURL string
}

// NewVercelProvider creates the Vercel adapter
func NewVercelProvider(oauth config.OAuthCredentials) *VercelProvider {
	return &VercelProvider{
		client:   newAPIClient(models.PlatformVercel),
		oauth:    oauth,
		baseURL:  "https://api.vercel.com",
		oauthURL: "https://vercel.com",
	}
}

// Platform returns the platform identifier
func (p *VercelProvider) Platform() models.Platform {
	return models.PlatformVercel
}

// Capabilities returns the static capability descriptor
func (p *VercelProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxCustomDomains:           50,
		SupportsOAuth:              true,
		SupportsPreviewDeployments: true,
		SupportsLogs:               true,
	}
}

// endpoint builds an API URL, appending teamId when the credential carries one
func (p *VercelProvider) endpoint(creds Credentials, path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if creds.TeamID != "" {
		query.Set("teamId", creds.TeamID)
	}
	u := p.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// GetAuthorizationURL builds the Vercel integration authorization URL
func (p *VercelProvider) GetAuthorizationURL(redirectURI, state string) (string, error) {
	params := url.Values{}
	params.Set("client_id", p.oauth.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return p.oauthURL + "/oauth/authorize?" + params.Encode(), nil
}

// ExchangeCodeForToken completes the authorization-code flow
func (p *VercelProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error) {
	body := map[string]string{
		"client_id":     p.oauth.ClientID,
		"client_secret": p.oauth.ClientSecret,
		"code":          code,
		"redirect_uri":  redirectURI,
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := p.client.doJSON(ctx, http.MethodPost, p.baseURL+"/v2/oauth/access_token", nil, body, &result)
	if err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", &ProviderError{Platform: p.Platform(), Message: "token response missing access_token"}
	}
	return result.AccessToken, nil
}

// ValidateToken checks the token against the current-user endpoint
func (p *VercelProvider) ValidateToken(ctx context.Context, creds Credentials) error {
	return p.client.doJSON(ctx, http.MethodGet, p.endpoint(creds, "/v2/user", nil), bearerHeader(creds.AccessToken), nil, nil)
}

type vercelProject struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Targets struct {
		Production struct {
			URL string `json:"url"`
		} `json:"production"`
	} `json:"targets"`
	Alias []struct {
		Domain string `json:"domain"`
	} `json:"alias"`
}

func (v vercelProject) toInfo() *ProjectInfo {
	info := &ProjectInfo{
		ID:            v.ID,
		Name:          v.Name,
		ProductionURL: "https://" + v.Name + ".vercel.app",
	}
	if v.Targets.Production.URL != "" {
		info.ProductionURL = "https://" + v.Targets.Production.URL
	}
	for _, a := range v.Alias {
		info.CustomDomains = append(info.CustomDomains, a.Domain)
	}
	return info
}

// CreateProject creates a Vercel project linked to the GitHub repository
func (p *VercelProvider) CreateProject(ctx context.Context, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, error) {
	name := cfg.Name
	if name == "" {
		name = repoName
	}
	body := map[string]interface{}{
		"name":      name,
		"framework": "hugo",
		"gitRepository": map[string]string{
			"type": "github",
			"repo": repoOwner + "/" + repoName,
		},
	}
	var project vercelProject
	err := p.client.doJSON(ctx, http.MethodPost, p.endpoint(creds, "/v10/projects", nil), bearerHeader(creds.AccessToken), body, &project)
	if err != nil {
		return nil, err
	}
	return project.toInfo(), nil
}

// GetProject fetches a project snapshot
func (p *VercelProvider) GetProject(ctx context.Context, creds Credentials, projectID string) (*ProjectInfo, error) {
	var project vercelProject
	err := p.client.doJSON(ctx, http.MethodGet, p.endpoint(creds, "/v9/projects/"+projectID, nil), bearerHeader(creds.AccessToken), nil, &project)
	if err != nil {
		return nil, err
	}
	return project.toInfo(), nil
}

// DeleteProject removes the Vercel project
func (p *VercelProvider) DeleteProject(ctx context.Context, creds Credentials, projectID string) error {
	return p.client.doJSON(ctx, http.MethodDelete, p.endpoint(creds, "/v9/projects/"+projectID, nil), bearerHeader(creds.AccessToken), nil, nil)
}

type vercelDeployment struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
	Target     string `json:"target"`
	CreatedAt  int64  `json:"createdAt"`
	Ready      int64  `json:"ready"`
	ErrorMsg   string `json:"errorMessage"`
}

// Deploy creates a deployment from the linked repository ref
func (p *VercelProvider) Deploy(ctx context.Context, creds Credentials, projectID string, opts DeployOptions) (*DeployResult, error) {
	target := "preview"
	if opts.IsProduction {
		target = "production"
	}

	gitSource := map[string]interface{}{
		"type":   "github",
		"repoId": projectID,
		"ref":    opts.Branch,
	}
	if opts.CommitSha != "" {
		gitSource["sha"] = opts.CommitSha
	}

	body := map[string]interface{}{
		"name":      projectID,
		"project":   projectID,
		"target":    target,
		"gitSource": gitSource,
	}

	var deployment vercelDeployment
	err := p.client.doJSON(ctx, http.MethodPost, p.endpoint(creds, "/v13/deployments", nil), bearerHeader(creds.AccessToken), body, &deployment)
	if err != nil {
		return nil, err
	}

	result := &DeployResult{
		DeploymentID:  deployment.ID,
		DeploymentURL: "https://" + deployment.URL,
	}
	if target == "preview" {
		result.PreviewURL = result.DeploymentURL
	}
	return result, nil
}

// GetDeploymentStatus polls one deployment and normalizes its ready state
func (p *VercelProvider) GetDeploymentStatus(ctx context.Context, creds Credentials, projectID, deploymentID string) (*DeploymentStatusResult, error) {
	var deployment vercelDeployment
	err := p.client.doJSON(ctx, http.MethodGet, p.endpoint(creds, "/v13/deployments/"+deploymentID, nil), bearerHeader(creds.AccessToken), nil, &deployment)
	if err != nil {
		return nil, err
	}

	result := &DeploymentStatusResult{
		Status:    mapVercelReadyState(deployment.ReadyState),
		CreatedAt: time.UnixMilli(deployment.CreatedAt),
	}
	if deployment.URL != "" {
		u := "https://" + deployment.URL
		if deployment.Target == "production" {
			result.DeploymentURL = &u
		} else {
			result.PreviewURL = &u
		}
	}
	if deployment.Ready > 0 && result.Status.IsTerminal() {
		completed := time.UnixMilli(deployment.Ready)
		result.CompletedAt = &completed
	}
	if deployment.ErrorMsg != "" {
		msg := deployment.ErrorMsg
		result.ErrorMessage = &msg
	}
	return result, nil
}

type vercelLogEvent struct {
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Payload struct {
		Text string `json:"text"`
	} `json:"payload"`
}

// GetDeploymentLogs pages through build events; the cursor is the millisecond
// timestamp to resume from.
func (p *VercelProvider) GetDeploymentLogs(ctx context.Context, creds Credentials, projectID, deploymentID, cursor string) (*LogsResult, error) {
	query := url.Values{}
	query.Set("limit", "100")
	if cursor != "" {
		query.Set("since", cursor)
	}

	var events []vercelLogEvent
	err := p.client.doJSON(ctx, http.MethodGet, p.endpoint(creds, "/v2/deployments/"+deploymentID+"/events", query), bearerHeader(creds.AccessToken), nil, &events)
	if err != nil {
		return nil, err
	}

	result := &LogsResult{Logs: make([]LogLine, 0, len(events))}
	var lastTimestamp int64
	for _, event := range events {
		level := "info"
		if event.Type == "stderr" || event.Type == "error" {
			level = "error"
		}
		result.Logs = append(result.Logs, LogLine{
			Timestamp: time.UnixMilli(event.Created),
			Level:     level,
			Message:   event.Payload.Text,
		})
		lastTimestamp = event.Created
	}
	if len(events) == 100 {
		result.HasMore = true
		result.NextCursor = strconv.FormatInt(lastTimestamp+1, 10)
	}
	return result, nil
}

type vercelDomain struct {
	Name         string `json:"name"`
	Verified     bool   `json:"verified"`
	Verification []struct {
		Type   string `json:"type"`
		Domain string `json:"domain"`
		Value  string `json:"value"`
	} `json:"verification"`
}

// SetCustomDomain attaches a domain to the project
func (p *VercelProvider) SetCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) (*DomainResult, error) {
	body := map[string]string{"name": domain}
	var attached vercelDomain
	err := p.client.doJSON(ctx, http.MethodPost, p.endpoint(creds, "/v10/projects/"+projectID+"/domains", nil), bearerHeader(creds.AccessToken), body, &attached)
	if err != nil {
		return nil, err
	}

	result := &DomainResult{Configured: true, Verified: attached.Verified}
	for _, v := range attached.Verification {
		result.DNSRecords = append(result.DNSRecords, DnsRecord{Type: v.Type, Name: v.Domain, Value: v.Value})
	}
	if len(result.DNSRecords) == 0 && !attached.Verified {
		result.DNSRecords, _ = p.GetDNSInstructions(ctx, creds, projectID, domain)
	}
	return result, nil
}

// GetDNSInstructions returns the records pointing the domain at Vercel
func (p *VercelProvider) GetDNSInstructions(ctx context.Context, creds Credentials, projectID, domain string) ([]DnsRecord, error) {
	if isApexDomain(domain) {
		return []DnsRecord{{Type: "A", Name: "@", Value: "76.76.21.21"}}, nil
	}
	return []DnsRecord{{Type: "CNAME", Name: domain, Value: "cname.vercel-dns.com"}}, nil
}

// RemoveCustomDomain detaches a domain from the project
func (p *VercelProvider) RemoveCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) error {
	return p.client.doJSON(ctx, http.MethodDelete, p.endpoint(creds, fmt.Sprintf("/v9/projects/%s/domains/%s", projectID, domain), nil), bearerHeader(creds.AccessToken), nil, nil)
}

func mapVercelReadyState(state string) models.DeploymentStatus {
	switch state {
	case "QUEUED", "INITIALIZING":
		return models.DeploymentStatusPending
	case "BUILDING":
		return models.DeploymentStatusBuilding
	case "READY":
		return models.DeploymentStatusSuccess
	case "ERROR":
		return models.DeploymentStatusFailed
	case "CANCELED":
		return models.DeploymentStatusCancelled
	}
	return models.DeploymentStatusPending
}
