package providers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/models"
)

// NetlifyProvider adapts the Netlify REST API. A Netlify site is the project;
// custom domains are a primary custom_domain plus domain_aliases, which this
// adapter flattens into one ordered list.
type NetlifyProvider struct {
	client   *apiClient
	oauth    config.OAuthCredentials
	baseURL  string
	oauthURL string
}

// NewNetlifyProvider creates the Netlify adapter
func NewNetlifyProvider(oauth config.OAuthCredentials) *NetlifyProvider {
	return &NetlifyProvider{
		client:   newAPIClient(models.PlatformNetlify),
		oauth:    oauth,
		baseURL:  "https://api.netlify.com/api/v1",
		oauthURL: "https://app.netlify.com",
	}
}

// Platform returns the platform identifier
func (p *NetlifyProvider) Platform() models.Platform {
	return models.PlatformNetlify
}

// Capabilities returns the static capability descriptor
func (p *NetlifyProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxCustomDomains:           20,
		SupportsOAuth:              true,
		SupportsPreviewDeployments: true,
		SupportsLogs:               false,
	}
}

// GetAuthorizationURL builds the Netlify authorization URL
func (p *NetlifyProvider) GetAuthorizationURL(redirectURI, state string) (string, error) {
	params := url.Values{}
	params.Set("client_id", p.oauth.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	return p.oauthURL + "/authorize?" + params.Encode(), nil
}

// ExchangeCodeForToken completes the authorization-code flow
func (p *NetlifyProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error) {
	body := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     p.oauth.ClientID,
		"client_secret": p.oauth.ClientSecret,
		"redirect_uri":  redirectURI,
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := p.client.doJSON(ctx, http.MethodPost, p.baseURL+"/oauth/token", nil, body, &result)
	if err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", &ProviderError{Platform: p.Platform(), Message: "token response missing access_token"}
	}
	return result.AccessToken, nil
}

// ValidateToken checks the token against the current-user endpoint
func (p *NetlifyProvider) ValidateToken(ctx context.Context, creds Credentials) error {
	return p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/user", bearerHeader(creds.AccessToken), nil, nil)
}

type netlifySite struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	SSLURL        string   `json:"ssl_url"`
	CustomDomain  string   `json:"custom_domain"`
	DomainAliases []string `json:"domain_aliases"`
}

func (s netlifySite) toInfo() *ProjectInfo {
	info := &ProjectInfo{
		ID:            s.ID,
		Name:          s.Name,
		ProductionURL: s.SSLURL,
	}
	if info.ProductionURL == "" {
		info.ProductionURL = s.URL
	}
	if s.CustomDomain != "" {
		info.CustomDomains = append(info.CustomDomains, s.CustomDomain)
	}
	info.CustomDomains = append(info.CustomDomains, s.DomainAliases...)
	return info
}

// CreateProject creates a Netlify site linked to the GitHub repository
func (p *NetlifyProvider) CreateProject(ctx context.Context, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, error) {
	name := cfg.Name
	if name == "" {
		name = repoName
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	body := map[string]interface{}{
		"name": name,
		"repo": map[string]interface{}{
			"provider": "github",
			"repo":     repoOwner + "/" + repoName,
			"branch":   branch,
		},
	}
	var site netlifySite
	if err := p.client.doJSON(ctx, http.MethodPost, p.baseURL+"/sites", bearerHeader(creds.AccessToken), body, &site); err != nil {
		return nil, err
	}
	return site.toInfo(), nil
}

// GetProject fetches a site snapshot
func (p *NetlifyProvider) GetProject(ctx context.Context, creds Credentials, projectID string) (*ProjectInfo, error) {
	var site netlifySite
	if err := p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), nil, &site); err != nil {
		return nil, err
	}
	return site.toInfo(), nil
}

// DeleteProject removes the Netlify site
func (p *NetlifyProvider) DeleteProject(ctx context.Context, creds Credentials, projectID string) error {
	return p.client.doJSON(ctx, http.MethodDelete, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), nil, nil)
}

type netlifyDeploy struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	DeployURL    string     `json:"deploy_ssl_url"`
	Context      string     `json:"context"`
	ErrorMessage string     `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	PublishedAt  *time.Time `json:"published_at"`
}

// Deploy triggers a build of the linked repository branch
func (p *NetlifyProvider) Deploy(ctx context.Context, creds Credentials, projectID string, opts DeployOptions) (*DeployResult, error) {
	body := map[string]interface{}{}
	if opts.CommitSha != "" {
		body["commit_ref"] = opts.CommitSha
	} else if opts.Branch != "" {
		body["branch"] = opts.Branch
	}

	var build struct {
		ID       string `json:"id"`
		DeployID string `json:"deploy_id"`
	}
	err := p.client.doJSON(ctx, http.MethodPost, p.baseURL+"/sites/"+projectID+"/builds", bearerHeader(creds.AccessToken), body, &build)
	if err != nil {
		return nil, err
	}

	deploymentID := build.DeployID
	if deploymentID == "" {
		deploymentID = build.ID
	}
	return &DeployResult{DeploymentID: deploymentID}, nil
}

// GetDeploymentStatus polls one deploy and normalizes its state
func (p *NetlifyProvider) GetDeploymentStatus(ctx context.Context, creds Credentials, projectID, deploymentID string) (*DeploymentStatusResult, error) {
	var deploy netlifyDeploy
	err := p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/sites/"+projectID+"/deploys/"+deploymentID, bearerHeader(creds.AccessToken), nil, &deploy)
	if err != nil {
		return nil, err
	}

	result := &DeploymentStatusResult{
		Status:    mapNetlifyState(deploy.State),
		CreatedAt: deploy.CreatedAt,
	}
	if deploy.DeployURL != "" {
		u := deploy.DeployURL
		if deploy.Context == "production" {
			result.DeploymentURL = &u
		} else {
			result.PreviewURL = &u
		}
	}
	if deploy.PublishedAt != nil {
		result.CompletedAt = deploy.PublishedAt
	}
	if deploy.ErrorMessage != "" {
		msg := deploy.ErrorMessage
		result.ErrorMessage = &msg
	}
	return result, nil
}

// GetDeploymentLogs is not supported: Netlify exposes no stable log API
func (p *NetlifyProvider) GetDeploymentLogs(ctx context.Context, creds Credentials, projectID, deploymentID, cursor string) (*LogsResult, error) {
	return nil, ErrNotSupported
}

// SetCustomDomain sets the site's primary domain, or appends an alias when a
// primary already exists.
func (p *NetlifyProvider) SetCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) (*DomainResult, error) {
	var site netlifySite
	if err := p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), nil, &site); err != nil {
		return nil, err
	}

	patch := map[string]interface{}{}
	if site.CustomDomain == "" {
		patch["custom_domain"] = domain
	} else {
		patch["domain_aliases"] = append(site.DomainAliases, domain)
	}

	if err := p.client.doJSON(ctx, http.MethodPatch, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), patch, &site); err != nil {
		return nil, err
	}

	records, _ := p.GetDNSInstructions(ctx, creds, projectID, domain)
	return &DomainResult{Configured: true, Verified: false, DNSRecords: records}, nil
}

// GetDNSInstructions returns the records pointing the domain at Netlify
func (p *NetlifyProvider) GetDNSInstructions(ctx context.Context, creds Credentials, projectID, domain string) ([]DnsRecord, error) {
	if isApexDomain(domain) {
		return []DnsRecord{{Type: "A", Name: "@", Value: "75.2.60.5"}}, nil
	}
	return []DnsRecord{{Type: "CNAME", Name: domain, Value: projectID + ".netlify.app"}}, nil
}

// RemoveCustomDomain clears the primary domain or prunes the alias list
func (p *NetlifyProvider) RemoveCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) error {
	var site netlifySite
	if err := p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), nil, &site); err != nil {
		return err
	}

	patch := map[string]interface{}{}
	if site.CustomDomain == domain {
		patch["custom_domain"] = nil
	} else {
		aliases := make([]string, 0, len(site.DomainAliases))
		for _, alias := range site.DomainAliases {
			if alias != domain {
				aliases = append(aliases, alias)
			}
		}
		patch["domain_aliases"] = aliases
	}

	return p.client.doJSON(ctx, http.MethodPatch, p.baseURL+"/sites/"+projectID, bearerHeader(creds.AccessToken), patch, nil)
}

func mapNetlifyState(state string) models.DeploymentStatus {
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
