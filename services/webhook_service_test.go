package services

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func signSHA1(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	env := setupTestEnv(t)
	body := []byte(`{"hello":"world"}`)

	tests := []struct {
		name     string
		platform models.Platform
		header   string
		value    string
		wantErr  bool
	}{
		{
			name:     "github valid",
			platform: models.PlatformGitHubPages,
			header:   "X-Hub-Signature-256",
			value:    signSHA256("gh-secret", body),
		},
		{
			name:     "github wrong secret",
			platform: models.PlatformGitHubPages,
			header:   "X-Hub-Signature-256",
			value:    signSHA256("wrong", body),
			wantErr:  true,
		},
		{
			name:     "vercel valid",
			platform: models.PlatformVercel,
			header:   "x-vercel-signature",
			value:    signSHA1("vercel-secret", body),
		},
		{
			name:     "netlify valid",
			platform: models.PlatformNetlify,
			header:   "X-Webhook-Signature",
			value:    signSHA256("netlify-secret", body),
		},
		{
			name:     "cloudflare valid",
			platform: models.PlatformCloudflarePages,
			header:   "cf-webhook-auth",
			value:    "cf-secret",
		},
		{
			name:     "cloudflare wrong secret",
			platform: models.PlatformCloudflarePages,
			header:   "cf-webhook-auth",
			value:    "guess",
			wantErr:  true,
		},
		{
			name:     "missing header",
			platform: models.PlatformGitHubPages,
			header:   "",
			value:    "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set(tt.header, tt.value)
			}
			err := env.webhooks.VerifySignature(tt.platform, headers, body)
			if tt.wantErr {
				var apiErr *APIError
				require.True(t, AsAPIError(err, &apiErr))
				assert.Equal(t, CodeSignature, apiErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySignatureNoSecretConfigured(t *testing.T) {
	env := setupTestEnv(t)
	webhooks := NewWebhookService(env.deployments, map[string]string{})

	headers := http.Header{}
	headers.Set("X-Hub-Signature-256", signSHA256("gh-secret", nil))
	err := webhooks.VerifySignature(models.PlatformGitHubPages, headers, nil)
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeSignature, apiErr.Code)
}

func vercelSucceededPayload(deploymentID, projectID string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"deployment.succeeded","payload":{"deployment":{"id":"%s","url":"blog.vercel.app"},"project":{"id":"%s"}}}`,
		deploymentID, projectID))
}

func TestProcessUpdatesMatchedDeployment(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusBuilding)

	err := env.webhooks.Process(models.PlatformVercel, vercelSucceededPayload("dep-1", project.ExternalProjectID))
	require.NoError(t, err)

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusSuccess, stored.Status)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, "https://blog.vercel.app", *stored.DeploymentURL)
	require.NotNil(t, stored.CompletedAt)
}

func TestProcessIsIdempotentOnReplay(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusBuilding)

	payload := vercelSucceededPayload("dep-1", project.ExternalProjectID)
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var afterFirst models.DeploymentHistory
	require.NoError(t, database.DB.First(&afterFirst, "id = ?", history.ID).Error)
	firstCompleted := *afterFirst.CompletedAt

	// Redelivery of the same event changes nothing
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var afterSecond models.DeploymentHistory
	require.NoError(t, database.DB.First(&afterSecond, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusSuccess, afterSecond.Status)
	assert.Equal(t, firstCompleted, *afterSecond.CompletedAt)

	var count int64
	require.NoError(t, database.DB.Model(&models.DeploymentHistory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessStaleEventAfterCompletion(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusSuccess)

	// An out-of-order created event arriving after success is ignored
	payload := []byte(fmt.Sprintf(
		`{"type":"deployment.created","payload":{"deployment":{"id":"dep-1"},"project":{"id":"%s"}}}`,
		project.ExternalProjectID))
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusSuccess, stored.Status)
}

func TestProcessUnknownDeploymentIgnored(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	// A success event for an id we never saw must not mutate anything
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, vercelSucceededPayload("ghost", project.ExternalProjectID)))

	var count int64
	require.NoError(t, database.DB.Model(&models.DeploymentHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessCreatedEventStartsHistoryRow(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	payload := []byte(fmt.Sprintf(
		`{"type":"deployment.created","payload":{"deployment":{"id":"dep-hook","meta":{"githubCommitSha":"abc123"}},"project":{"id":"%s"}}}`,
		project.ExternalProjectID))
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "external_deployment_id = ?", "dep-hook").Error)
	assert.Equal(t, project.ID, stored.ProjectID)
	assert.Equal(t, models.DeploymentStatusPending, stored.Status)
	assert.Equal(t, models.TriggerWebhook, stored.TriggeredBy)
	require.NotNil(t, stored.CommitSha)
	assert.Equal(t, "abc123", *stored.CommitSha)
}

func TestProcessCreatedEventUnknownProjectIgnored(t *testing.T) {
	env := setupTestEnv(t)

	payload := []byte(`{"type":"deployment.created","payload":{"deployment":{"id":"dep-x"},"project":{"id":"prj-unknown"}}}`)
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var count int64
	require.NoError(t, database.DB.Model(&models.DeploymentHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessProjectRemovedDeactivates(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	payload := []byte(fmt.Sprintf(`{"type":"project.removed","payload":{"project":{"id":"%s"}}}`, project.ExternalProjectID))
	require.NoError(t, env.webhooks.Process(models.PlatformVercel, payload))

	var stored models.DeploymentProject
	require.NoError(t, database.DB.First(&stored, "id = ?", project.ID).Error)
	assert.False(t, stored.IsActive)
}

func TestProcessMalformedPayload(t *testing.T) {
	env := setupTestEnv(t)

	err := env.webhooks.Process(models.PlatformVercel, []byte("not json"))
	assert.Error(t, err)
}

func TestProcessGitHubBuildEvent(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)

	project := models.DeploymentProject{
		RepositoryID:      repo.ID,
		Platform:          models.PlatformGitHubPages,
		ExternalProjectID: "alice/blog",
		ProjectName:       "blog",
		IsActive:          true,
	}
	require.NoError(t, database.DB.Create(&project).Error)
	history := createTestHistory(t, project.ID, "42", models.DeploymentStatusBuilding)

	payload := []byte(`{"id":42,"build":{"status":"errored","commit":"abc123","error":{"message":"missing index.html"}},"repository":{"full_name":"alice/blog"}}`)
	require.NoError(t, env.webhooks.Process(models.PlatformGitHubPages, payload))

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "missing index.html", *stored.ErrorMessage)
}
