package services

import (
	"context"
	"testing"
	"time"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/dto"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRecordsHistory(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	result, err := env.deployments.Trigger(context.Background(), project.ID, user.ID, dto.DeployRequest{
		CommitSha: "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "dep-1", result.DeploymentID)

	var history models.DeploymentHistory
	require.NoError(t, database.DB.First(&history, "project_id = ?", project.ID).Error)
	assert.Equal(t, "dep-1", history.ExternalDeploymentID)
	assert.Equal(t, models.DeploymentStatusPending, history.Status)
	assert.Equal(t, models.TriggerAPI, history.TriggeredBy)
	require.NotNil(t, history.CommitSha)
	assert.Equal(t, "abc123", *history.CommitSha)
}

func TestTriggerDefaultsToRepositoryBranch(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	var gotBranch string
	env.fakes[models.PlatformVercel].deployFn = func(projectID string, opts providers.DeployOptions) (*providers.DeployResult, error) {
		gotBranch = opts.Branch
		return &providers.DeployResult{DeploymentID: "dep-1"}, nil
	}

	_, err := env.deployments.Trigger(context.Background(), project.ID, user.ID, dto.DeployRequest{})
	require.NoError(t, err)
	assert.Equal(t, "main", gotBranch)
}

func TestTriggerSucceedsWhenBookkeepingFails(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	// Break the history table so the insert fails after the upstream trigger
	require.NoError(t, database.DB.Migrator().DropTable(&models.DeploymentHistory{}))

	result, err := env.deployments.Trigger(context.Background(), project.ID, user.ID, dto.DeployRequest{})
	require.NoError(t, err)
	assert.Equal(t, "dep-1", result.DeploymentID)
}

func TestApplyStatusNeverOverwritesTerminal(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusSuccess)

	// A stale building event arriving after completion is a no-op
	err := env.deployments.ApplyStatus(&history, &providers.DeploymentStatusResult{
		Status: models.DeploymentStatusBuilding,
	})
	require.NoError(t, err)

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusSuccess, stored.Status)
}

func TestApplyStatusPartialUpdate(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	url := "https://dep-1.vercel.app"
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusPending)
	require.NoError(t, database.DB.Model(&history).Update("deployment_url", url).Error)
	history.DeploymentURL = &url

	// A report without a URL must not clear the stored one
	err := env.deployments.ApplyStatus(&history, &providers.DeploymentStatusResult{
		Status: models.DeploymentStatusBuilding,
	})
	require.NoError(t, err)

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusBuilding, stored.Status)
	require.NotNil(t, stored.DeploymentURL)
	assert.Equal(t, url, *stored.DeploymentURL)
}

func TestApplyStatusSetsCompletedAtOnTerminal(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	history := createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusBuilding)

	errMsg := "build exploded"
	err := env.deployments.ApplyStatus(&history, &providers.DeploymentStatusResult{
		Status:       models.DeploymentStatusFailed,
		ErrorMessage: &errMsg,
	})
	require.NoError(t, err)

	var stored models.DeploymentHistory
	require.NoError(t, database.DB.First(&stored, "id = ?", history.ID).Error)
	assert.Equal(t, models.DeploymentStatusFailed, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.WithinDuration(t, time.Now(), *stored.CompletedAt, time.Minute)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "build exploded", *stored.ErrorMessage)
}

func TestGetStatusPollsProvider(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)
	createTestHistory(t, project.ID, "dep-1", models.DeploymentStatusPending)

	url := "https://dep-1.vercel.app"
	env.fakes[models.PlatformVercel].statusFn = func(projectID, deploymentID string) (*providers.DeploymentStatusResult, error) {
		return &providers.DeploymentStatusResult{
			Status:        models.DeploymentStatusSuccess,
			DeploymentURL: &url,
		}, nil
	}

	history, err := env.deployments.GetStatus(context.Background(), project.ID, user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.DeploymentStatusSuccess, history.Status)
	require.NotNil(t, history.DeploymentURL)
	assert.Equal(t, url, *history.DeploymentURL)
}

func TestGetStatusNoDeployments(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	_, err := env.deployments.GetStatus(context.Background(), project.ID, user.ID, "")
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeNotFound, apiErr.Code)
}

func TestGetLogsUnsupportedPlatform(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformGitHubPages)
	project := createTestProject(t, repo.ID, models.PlatformGitHubPages)
	createTestHistory(t, project.ID, "42", models.DeploymentStatusSuccess)

	_, err := env.deployments.GetLogs(context.Background(), project.ID, user.ID, "", "")
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeConflict, apiErr.Code)
}

func TestListHistoryNewestFirst(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	old := createTestHistory(t, project.ID, "dep-old", models.DeploymentStatusSuccess)
	require.NoError(t, database.DB.Model(&old).Update("started_at", time.Now().Add(-time.Hour)).Error)
	createTestHistory(t, project.ID, "dep-new", models.DeploymentStatusPending)

	history, err := env.deployments.ListHistory(project.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "dep-new", history[0].ExternalDeploymentID)
	assert.Equal(t, "dep-old", history[1].ExternalDeploymentID)
}
