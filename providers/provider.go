package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/models"
)

// ErrNotSupported is returned when an operation is invoked on a platform whose
// capability descriptor excludes it. Callers are expected to consult
// Capabilities() first; this error is the backstop, not the signal.
var ErrNotSupported = errors.New("operation not supported by this platform")

// ProviderError tags an upstream API failure with the platform it came from.
// The original platform-supplied message is preserved where safe; credentials
// never appear in it.
type ProviderError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Platform, e.Message)
}

// Capabilities is the static per-platform descriptor consulted before
// domain/feature operations. Optional operations are gated on these flags
// rather than probed at runtime.
type Capabilities struct {
	MaxCustomDomains           int  `json:"maxCustomDomains"`
	SupportsOAuth              bool `json:"supportsOAuth"`
	SupportsPreviewDeployments bool `json:"supportsPreviewDeployments"`
	SupportsLogs               bool `json:"supportsLogs"`
	RequiresAccountID          bool `json:"requiresAccountId"`
}

// Credentials authorizes calls to a platform on a user's behalf
type Credentials struct {
	AccessToken string
	TeamID      string
	AccountID   string
}

// ProjectConfig carries the settings used when creating a platform project
type ProjectConfig struct {
	Name   string
	Branch string
}

// ProjectInfo is the normalized snapshot of a platform project
type ProjectInfo struct {
	ID            string
	Name          string
	ProductionURL string
	CustomDomains []string
}

// DeployOptions selects what to build for one deployment attempt
type DeployOptions struct {
	Branch       string
	CommitSha    string
	IsProduction bool
}

// DeployResult is the immediate response to a deployment trigger
type DeployResult struct {
	DeploymentID  string
	DeploymentURL string
	PreviewURL    string
}

// DeploymentStatusResult is a normalized status poll response. Pointer fields
// are nil when the platform did not report them; callers must not overwrite
// stored values with absent ones.
type DeploymentStatusResult struct {
	Status        models.DeploymentStatus
	DeploymentURL *string
	PreviewURL    *string
	ErrorMessage  *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// LogLine is one normalized build log entry
type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// LogsResult is one page of build logs with an opaque pagination cursor
type LogsResult struct {
	Logs       []LogLine `json:"logs"`
	HasMore    bool      `json:"hasMore"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// DnsRecord describes one record the user must create for a custom domain
type DnsRecord struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DomainResult reports the outcome of attaching a custom domain
type DomainResult struct {
	Configured bool        `json:"configured"`
	Verified   bool        `json:"verified"`
	DNSRecords []DnsRecord `json:"dnsRecords,omitempty"`
}

// Provider is the uniform capability interface implemented by each platform
// adapter. It normalizes every platform to a deployable unit with a production
// URL, zero or more custom domains and a history of deployment attempts.
// Operations outside a platform's capabilities return ErrNotSupported.
type Provider interface {
	Platform() models.Platform
	Capabilities() Capabilities

	// OAuth operations; only meaningful when Capabilities().SupportsOAuth
	GetAuthorizationURL(redirectURI, state string) (string, error)
	ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error)

	// ValidateToken checks a manually entered credential before it is stored
	ValidateToken(ctx context.Context, creds Credentials) error

	CreateProject(ctx context.Context, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, error)
	GetProject(ctx context.Context, creds Credentials, projectID string) (*ProjectInfo, error)
	DeleteProject(ctx context.Context, creds Credentials, projectID string) error

	Deploy(ctx context.Context, creds Credentials, projectID string, opts DeployOptions) (*DeployResult, error)
	GetDeploymentStatus(ctx context.Context, creds Credentials, projectID, deploymentID string) (*DeploymentStatusResult, error)
	GetDeploymentLogs(ctx context.Context, creds Credentials, projectID, deploymentID, cursor string) (*LogsResult, error)

	SetCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) (*DomainResult, error)
	GetDNSInstructions(ctx context.Context, creds Credentials, projectID, domain string) ([]DnsRecord, error)
	RemoveCustomDomain(ctx context.Context, creds Credentials, projectID, domain string) error
}

// AutoSetup is the zero-config onboarding composite: create the project, then
// trigger its first production deployment.
func AutoSetup(ctx context.Context, p Provider, creds Credentials, cfg ProjectConfig, repoOwner, repoName string) (*ProjectInfo, *DeployResult, error) {
	project, err := p.CreateProject(ctx, creds, cfg, repoOwner, repoName)
	if err != nil {
		return nil, nil, err
	}

	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	deploy, err := p.Deploy(ctx, creds, project.ID, DeployOptions{
		Branch:       branch,
		IsProduction: true,
	})
	if err != nil {
		// Project exists but the first build could not be kicked off; callers
		// keep the project and surface the deploy failure.
		return project, nil, err
	}

	return project, deploy, nil
}

// Registry resolves a platform identifier to its adapter. Built once at
// startup; adding a platform means adding a variant and an implementation.
type Registry struct {
	providers map[models.Platform]Provider
}

// NewRegistry wires one adapter per supported platform
func NewRegistry(cfg *config.PlatformConfig) *Registry {
	return &Registry{
		providers: map[models.Platform]Provider{
			models.PlatformGitHubPages:     NewGitHubPagesProvider(),
			models.PlatformVercel:          NewVercelProvider(cfg.VercelOAuth),
			models.PlatformNetlify:         NewNetlifyProvider(cfg.NetlifyOAuth),
			models.PlatformCloudflarePages: NewCloudflarePagesProvider(),
		},
	}
}

// Get returns the adapter for a platform
func (r *Registry) Get(platform models.Platform) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("no provider registered for platform %s", platform)
	}
	return p, nil
}

// Replace swaps an adapter, used by tests to point at a stub server
func (r *Registry) Replace(platform models.Platform, p Provider) {
	r.providers[platform] = p
}
