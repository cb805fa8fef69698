package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blogdeploy/models"
)

// GitHubPagesProvider adapts GitHub Pages to the Provider interface. GitHub
// Pages has no first-class project: the deployable unit is the repository's
// Pages site, and the external project id is the "owner/repo" pair. It reuses
// the primary GitHub session token, so there is no OAuth flow here.
type GitHubPagesProvider struct {
	client  *apiClient
	baseURL string
}

// NewGitHubPagesProvider creates the GitHub Pages adapter
func NewGitHubPagesProvider() *GitHubPagesProvider {
	return &GitHubPagesProvider{
		client:  newAPIClient(models.PlatformGitHubPages),
		baseURL: "https://api.github.com",
	}
}

// Platform returns the platform identifier
func (p *GitHubPagesProvider) Platform() models.Platform {
	return models.PlatformGitHubPages
}

// Capabilities returns the static capability descriptor
func (p *GitHubPagesProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxCustomDomains:           1,
		SupportsOAuth:              false,
		SupportsPreviewDeployments: false,
		SupportsLogs:               false,
	}
}

func (p *GitHubPagesProvider) headers(creds Credentials) map[string]string {
	return map[string]string{
		"Authorization":        "Bearer " + creds.AccessToken,
		"X-GitHub-Api-Version": "2022-11-28",
	}
}

// GetAuthorizationURL is not applicable: GitHub Pages reuses the session token
func (p *GitHubPagesProvider) GetAuthorizationURL(redirectURI, state string) (string, error) {
	return "", ErrNotSupported
}

// ExchangeCodeForToken is not applicable: GitHub Pages reuses the session token
func (p *GitHubPagesProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error) {
	return "", ErrNotSupported
}

// ValidateToken checks the token against the authenticated-user endpoint
func (p *GitHubPagesProvider) ValidateToken(ctx context.Context, creds Credentials) error {
	return p.client.doJSON(ctx, http.MethodGet, p.baseURL+"/user", p.headers(creds), nil, nil)
}

type githubPagesSite struct {
	URL     string  `json:"url"`
	HTMLURL string  `json:"html_url"`
	CNAME   *string `json:"cname"`
	Status  string  `json:"status"`
}

// CreateProject enables Pages on the repository. The site builds from GitHub
// Actions so Hugo/Krems output can be published without a gh-pages branch.
func (p *GitHubPagesProvider) CreateProject(ctx context.Context, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pages", p.baseURL, repoOwner, repoName)

	body := map[string]interface{}{"build_type": "workflow"}
	var site githubPagesSite
	err := p.client.doJSON(ctx, http.MethodPost, url, p.headers(creds), body, &site)
	if err != nil {
		// 409 means Pages is already enabled; fall through to the current site
		var perr *ProviderError
		if !asProviderError(err, &perr) || perr.StatusCode != http.StatusConflict {
			return nil, err
		}
		if err := p.client.doJSON(ctx, http.MethodGet, url, p.headers(creds), nil, &site); err != nil {
			return nil, err
		}
	}

	return p.siteToProject(site, repoOwner, repoName), nil
}

// GetProject returns the current Pages site as a project snapshot
func (p *GitHubPagesProvider) GetProject(ctx context.Context, creds Credentials, projectID string) (*ProjectInfo, error) {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pages", p.baseURL, owner, repo)
	var site githubPagesSite
	if err := p.client.doJSON(ctx, http.MethodGet, url, p.headers(creds), nil, &site); err != nil {
		return nil, err
	}
	return p.siteToProject(site, owner, repo), nil
}

// DeleteProject disables Pages on the repository
func (p *GitHubPagesProvider) DeleteProject(ctx context.Context, creds Credentials, projectID string) error {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pages", p.baseURL, owner, repo)
	return p.client.doJSON(ctx, http.MethodDelete, url, p.headers(creds), nil, nil)
}

type githubPagesBuild struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  struct {
		Message *string `json:"message"`
	} `json:"error"`
	Commit    string    `json:"commit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b githubPagesBuild) id() string {
	// Build objects carry no id field; the trailing URL segment is the id
	parts := strings.Split(strings.TrimSuffix(b.URL, "/"), "/")
	return parts[len(parts)-1]
}

// Deploy requests a Pages build and resolves the queued build's id
func (p *GitHubPagesProvider) Deploy(ctx context.Context, creds Credentials, projectID string, opts DeployOptions) (*DeployResult, error) {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return nil, err
	}

	buildURL := fmt.Sprintf("%s/repos/%s/%s/pages/builds", p.baseURL, owner, repo)
	if err := p.client.doJSON(ctx, http.MethodPost, buildURL, p.headers(creds), nil, nil); err != nil {
		return nil, err
	}

	var latest githubPagesBuild
	if err := p.client.doJSON(ctx, http.MethodGet, buildURL+"/latest", p.headers(creds), nil, &latest); err != nil {
		return nil, err
	}

	return &DeployResult{
		DeploymentID:  latest.id(),
		DeploymentURL: fmt.Sprintf("https://%s.github.io/%s/", owner, repo),
	}, nil
}

// GetDeploymentStatus polls one Pages build and normalizes its status
func (p *GitHubPagesProvider) GetDeploymentStatus(ctx context.Context, creds Credentials, projectID, deploymentID string) (*DeploymentStatusResult, error) {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pages/builds/%s", p.baseURL, owner, repo, deploymentID)
	var build githubPagesBuild
	if err := p.client.doJSON(ctx, http.MethodGet, url, p.headers(creds), nil, &build); err != nil {
		return nil, err
	}

	result := &DeploymentStatusResult{
		Status:       mapGitHubBuildStatus(build.Status),
		ErrorMessage: build.Error.Message,
		CreatedAt:    build.CreatedAt,
	}
	if result.Status.IsTerminal() {
		completed := build.UpdatedAt
		result.CompletedAt = &completed
	}
	if result.Status == models.DeploymentStatusSuccess {
		url := fmt.Sprintf("https://%s.github.io/%s/", owner, repo)
		result.DeploymentURL = &url
	}
	return result, nil
}

// GetDeploymentLogs is not supported: Pages exposes no build log API
func (p *GitHubPagesProvider) GetDeploymentLogs(ctx context.Context, creds Credentials, projectID, deploymentID, cursor string) (*LogsResult, error) {
	return nil, ErrNotSupported
}

// SetCustomDomain sets the Pages CNAME. GitHub supports a single custom domain.
func (p *GitHubPagesProvider) SetCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) (*DomainResult, error) {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pages", p.baseURL, owner, repo)
	body := map[string]interface{}{"cname": domain}
	if err := p.client.doJSON(ctx, http.MethodPut, url, p.headers(creds), body, nil); err != nil {
		return nil, err
	}

	records, _ := p.GetDNSInstructions(ctx, creds, projectID, domain)
	return &DomainResult{
		Configured: true,
		Verified:   false, // GitHub verifies the CNAME asynchronously
		DNSRecords: records,
	}, nil
}

// GetDNSInstructions returns the records pointing the domain at GitHub Pages
func (p *GitHubPagesProvider) GetDNSInstructions(ctx context.Context, creds Credentials, projectID, domain string) ([]DnsRecord, error) {
	owner, _, err := splitRepoID(projectID)
	if err != nil {
		return nil, err
	}
	if isApexDomain(domain) {
		return []DnsRecord{
			{Type: "A", Name: "@", Value: "185.199.108.153"},
			{Type: "A", Name: "@", Value: "185.199.109.153"},
			{Type: "A", Name: "@", Value: "185.199.110.153"},
			{Type: "A", Name: "@", Value: "185.199.111.153"},
		}, nil
	}
	return []DnsRecord{
		{Type: "CNAME", Name: domain, Value: owner + ".github.io"},
	}, nil
}

// RemoveCustomDomain clears the Pages CNAME
func (p *GitHubPagesProvider) RemoveCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) error {
	owner, repo, err := splitRepoID(projectID)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pages", p.baseURL, owner, repo)
	body := map[string]interface{}{"cname": nil}
	return p.client.doJSON(ctx, http.MethodPut, url, p.headers(creds), body, nil)
}

func (p *GitHubPagesProvider) siteToProject(site githubPagesSite, owner, repo string) *ProjectInfo {
	info := &ProjectInfo{
		ID:            owner + "/" + repo,
		Name:          repo,
		ProductionURL: site.HTMLURL,
	}
	if info.ProductionURL == "" {
		info.ProductionURL = fmt.Sprintf("https://%s.github.io/%s/", owner, repo)
	}
	if site.CNAME != nil && *site.CNAME != "" {
		info.CustomDomains = []string{*site.CNAME}
	}
	return info
}

func mapGitHubBuildStatus(status string) models.DeploymentStatus {
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

func splitRepoID(projectID string) (owner, repo string, err error) {
	parts := strings.SplitN(projectID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid github-pages project id %q, expected owner/repo", projectID)
	}
	return parts[0], parts[1], nil
}

func isApexDomain(domain string) bool {
	return strings.Count(domain, ".") == 1
}
