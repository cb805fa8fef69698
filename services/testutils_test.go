package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/fernet/fernet-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global handle at a fresh in-memory SQLite database
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	previous := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = previous })

	return db
}

// generateTestKey generates a fresh fernet key for encryption tests
func generateTestKey() string {
	var key fernet.Key
	if _, err := rand.Read(key[:]); err != nil {
		panic(fmt.Sprintf("failed to generate test encryption key: %v", err))
	}
	return key.Encode()
}

func createTestUser(t *testing.T, email string) models.User {
	user := models.User{
		Email:    email,
		Password: "hashed",
		Role:     models.RoleUser,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestRepository(t *testing.T, userID string) models.Repository {
	repo := models.Repository{
		UserID:        userID,
		Owner:         "alice",
		Name:          "blog",
		DefaultBranch: "main",
	}
	if err := database.DB.Create(&repo).Error; err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}
	return repo
}

func createTestProject(t *testing.T, repositoryID string, platform models.Platform) models.DeploymentProject {
	project := models.DeploymentProject{
		RepositoryID:      repositoryID,
		Platform:          platform,
		ExternalProjectID: "ext-" + string(platform),
		ProjectName:       "blog",
		ProductionURL:     "https://blog.example.com",
		IsActive:          true,
	}
	if err := database.DB.Create(&project).Error; err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}
	return project
}

func createTestHistory(t *testing.T, projectID, externalID string, status models.DeploymentStatus) models.DeploymentHistory {
	history := models.DeploymentHistory{
		ProjectID:            projectID,
		ExternalDeploymentID: externalID,
		Status:               status,
		TriggeredBy:          models.TriggerAPI,
		StartedAt:            time.Now(),
	}
	if err := database.DB.Create(&history).Error; err != nil {
		t.Fatalf("Failed to create test history: %v", err)
	}
	return history
}

// fakeProvider is a configurable in-memory Provider for service tests
type fakeProvider struct {
	platform     models.Platform
	capabilities providers.Capabilities

	validateErr  error
	exchangeFn   func(code string) (string, error)
	deployFn     func(projectID string, opts providers.DeployOptions) (*providers.DeployResult, error)
	statusFn     func(projectID, deploymentID string) (*providers.DeploymentStatusResult, error)
	domainErr    error
	deleteErr    error
	deleteCalled bool
	exchanged    int
}

func newFakeProvider(platform models.Platform, capabilities providers.Capabilities) *fakeProvider {
	return &fakeProvider{platform: platform, capabilities: capabilities}
}

func (f *fakeProvider) Platform() models.Platform            { return f.platform }
func (f *fakeProvider) Capabilities() providers.Capabilities { return f.capabilities }

func (f *fakeProvider) GetAuthorizationURL(redirectURI, state string) (string, error) {
	if !f.capabilities.SupportsOAuth {
		return "", providers.ErrNotSupported
	}
	return "https://auth.example.com/authorize?state=" + state, nil
}

func (f *fakeProvider) ExchangeCodeForToken(ctx context.Context, code, redirectURI string) (string, error) {
	f.exchanged++
	if f.exchangeFn != nil {
		return f.exchangeFn(code)
	}
	return "token-for-" + code, nil
}

func (f *fakeProvider) ValidateToken(ctx context.Context, creds providers.Credentials) error {
	return f.validateErr
}

func (f *fakeProvider) CreateProject(ctx context.Context, creds providers.Credentials, cfg providers.ProjectConfig, repoOwner, repoName string) (*providers.ProjectInfo, error) {
	name := cfg.Name
	if name == "" {
		name = repoName
	}
	return &providers.ProjectInfo{
		ID:            "ext-" + string(f.platform),
		Name:          name,
		ProductionURL: fmt.Sprintf("https://%s.%s.example", repoName, f.platform),
	}, nil
}

func (f *fakeProvider) GetProject(ctx context.Context, creds providers.Credentials, projectID string) (*providers.ProjectInfo, error) {
	return &providers.ProjectInfo{ID: projectID, Name: "blog"}, nil
}

func (f *fakeProvider) DeleteProject(ctx context.Context, creds providers.Credentials, projectID string) error {
	f.deleteCalled = true
	return f.deleteErr
}

func (f *fakeProvider) Deploy(ctx context.Context, creds providers.Credentials, projectID string, opts providers.DeployOptions) (*providers.DeployResult, error) {
	if f.deployFn != nil {
		return f.deployFn(projectID, opts)
	}
	return &providers.DeployResult{DeploymentID: "dep-1"}, nil
}

func (f *fakeProvider) GetDeploymentStatus(ctx context.Context, creds providers.Credentials, projectID, deploymentID string) (*providers.DeploymentStatusResult, error) {
	if f.statusFn != nil {
		return f.statusFn(projectID, deploymentID)
	}
	return &providers.DeploymentStatusResult{Status: models.DeploymentStatusBuilding}, nil
}

func (f *fakeProvider) GetDeploymentLogs(ctx context.Context, creds providers.Credentials, projectID, deploymentID, cursor string) (*providers.LogsResult, error) {
	if !f.capabilities.SupportsLogs {
		return nil, providers.ErrNotSupported
	}
	return &providers.LogsResult{Logs: []providers.LogLine{{Message: "build ok"}}}, nil
}

func (f *fakeProvider) SetCustomDomain(ctx context.Context, creds providers.Credentials, projectID, domain string) (*providers.DomainResult, error) {
	if f.domainErr != nil {
		return nil, f.domainErr
	}
	return &providers.DomainResult{Configured: true}, nil
}

func (f *fakeProvider) GetDNSInstructions(ctx context.Context, creds providers.Credentials, projectID, domain string) ([]providers.DnsRecord, error) {
	return []providers.DnsRecord{{Type: "CNAME", Name: domain, Value: "target.example"}}, nil
}

func (f *fakeProvider) RemoveCustomDomain(ctx context.Context, creds providers.Credentials, projectID, domain string) error {
	return f.domainErr
}

// testEnv bundles the wired services with their fake adapters
type testEnv struct {
	registry    *providers.Registry
	fakes       map[models.Platform]*fakeProvider
	credentials *CredentialService
	oauth       *OAuthService
	projects    *ProjectService
	deployments *DeploymentService
	webhooks    *WebhookService
	secrets     map[string]string
}

func setupTestEnv(t *testing.T) *testEnv {
	setupTestDB(t)

	cfg := &config.PlatformConfig{
		BaseCallbackURL: "http://localhost:8080",
		SettingsURL:     "http://localhost:3000/settings",
	}
	registry := providers.NewRegistry(cfg)

	fakes := map[models.Platform]*fakeProvider{
		models.PlatformGitHubPages: newFakeProvider(models.PlatformGitHubPages, providers.Capabilities{
			MaxCustomDomains: 1,
		}),
		models.PlatformVercel: newFakeProvider(models.PlatformVercel, providers.Capabilities{
			MaxCustomDomains:           10,
			SupportsOAuth:              true,
			SupportsPreviewDeployments: true,
			SupportsLogs:               true,
		}),
		models.PlatformNetlify: newFakeProvider(models.PlatformNetlify, providers.Capabilities{
			MaxCustomDomains: 20,
			SupportsOAuth:    true,
		}),
		models.PlatformCloudflarePages: newFakeProvider(models.PlatformCloudflarePages, providers.Capabilities{
			MaxCustomDomains:  10,
			SupportsLogs:      true,
			RequiresAccountID: true,
		}),
	}
	for platform, fake := range fakes {
		registry.Replace(platform, fake)
	}

	secrets := map[string]string{
		"github-pages":     "gh-secret",
		"vercel":           "vercel-secret",
		"netlify":          "netlify-secret",
		"cloudflare-pages": "cf-secret",
	}

	credentials := NewCredentialService(registry, PlaintextCipher{})
	oauth := NewOAuthService(registry, credentials, cfg)
	projects := NewProjectService(registry, credentials)
	deployments := NewDeploymentService(registry, credentials, projects)
	webhooks := NewWebhookService(deployments, secrets)

	return &testEnv{
		registry:    registry,
		fakes:       fakes,
		credentials: credentials,
		oauth:       oauth,
		projects:    projects,
		deployments: deployments,
		webhooks:    webhooks,
		secrets:     secrets,
	}
}

// connectPlatform stores a credential directly, bypassing token validation
func (e *testEnv) connectPlatform(t *testing.T, userID string, platform models.Platform) {
	if err := e.credentials.Connect(context.Background(), userID, platform, "test-token", nil, nil); err != nil {
		t.Fatalf("Failed to connect %s: %v", platform, err)
	}
}
