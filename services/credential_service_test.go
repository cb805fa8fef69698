package services

import (
	"context"
	"testing"

	"github.com/blogdeploy/database"
	"github.com/blogdeploy/models"
	"github.com/blogdeploy/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")

	err := env.credentials.Connect(context.Background(), user.ID, models.PlatformVercel, "token-one", nil, nil)
	require.NoError(t, err)
	err = env.credentials.Connect(context.Background(), user.ID, models.PlatformVercel, "token-two", nil, nil)
	require.NoError(t, err)

	// One row per (user, platform); the second connect replaced the token
	var count int64
	require.NoError(t, database.DB.Model(&models.PlatformCredential{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	creds, err := env.credentials.GetCredentials(user.ID, models.PlatformVercel)
	require.NoError(t, err)
	assert.Equal(t, "token-two", creds.AccessToken)
}

func TestConnectRejectsInvalidToken(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")

	env.fakes[models.PlatformVercel].validateErr = &providers.ProviderError{
		Platform:   models.PlatformVercel,
		StatusCode: 401,
		Message:    "invalid token",
	}

	err := env.credentials.Connect(context.Background(), user.ID, models.PlatformVercel, "bad-token", nil, nil)
	require.Error(t, err)

	// Nothing was stored
	_, err = env.credentials.GetCredentials(user.ID, models.PlatformVercel)
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeNotFound, apiErr.Code)
}

func TestConnectStoresTeamAndAccount(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")

	teamID := "team_123"
	accountID := "acct_456"
	err := env.credentials.Connect(context.Background(), user.ID, models.PlatformCloudflarePages, "token", &teamID, &accountID)
	require.NoError(t, err)

	creds, err := env.credentials.GetCredentials(user.ID, models.PlatformCloudflarePages)
	require.NoError(t, err)
	assert.Equal(t, "team_123", creds.TeamID)
	assert.Equal(t, "acct_456", creds.AccountID)
}

func TestListStatusesCoversAllPlatforms(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	env.connectPlatform(t, user.ID, models.PlatformVercel)

	statuses, err := env.credentials.ListStatuses(user.ID)
	require.NoError(t, err)
	require.Len(t, statuses, len(models.AllPlatforms))

	connected := map[models.Platform]bool{}
	for _, status := range statuses {
		connected[status.Platform] = status.Connected
	}
	assert.True(t, connected[models.PlatformVercel])
	assert.False(t, connected[models.PlatformGitHubPages])
	assert.False(t, connected[models.PlatformNetlify])
	assert.False(t, connected[models.PlatformCloudflarePages])
}

func TestDisconnectNotConnected(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")

	err := env.credentials.Disconnect(user.ID, models.PlatformVercel)
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeNotFound, apiErr.Code)
}

func TestDisconnectBlockedByActiveProjects(t *testing.T) {
	env := setupTestEnv(t)
	user := createTestUser(t, "alice@example.com")
	repo := createTestRepository(t, user.ID)
	env.connectPlatform(t, user.ID, models.PlatformVercel)
	project := createTestProject(t, repo.ID, models.PlatformVercel)

	err := env.credentials.Disconnect(user.ID, models.PlatformVercel)
	var apiErr *APIError
	require.True(t, AsAPIError(err, &apiErr))
	assert.Equal(t, CodeConflict, apiErr.Code)

	// Deactivating the project unblocks the disconnect
	err = database.DB.Model(&models.DeploymentProject{}).
		Where("id = ?", project.ID).
		Update("is_active", false).Error
	require.NoError(t, err)

	require.NoError(t, env.credentials.Disconnect(user.ID, models.PlatformVercel))
}

func TestCredentialEncryptedAtRest(t *testing.T) {
	cipher, err := NewFernetCipher(generateTestKey())
	require.NoError(t, err)

	env := setupTestEnv(t)
	credentials := NewCredentialService(env.registry, cipher)

	user := createTestUser(t, "alice@example.com")
	err = credentials.Connect(context.Background(), user.ID, models.PlatformVercel, "super-secret", nil, nil)
	require.NoError(t, err)

	// The stored column never contains the plaintext token
	var stored models.PlatformCredential
	require.NoError(t, database.DB.First(&stored, "user_id = ?", user.ID).Error)
	assert.NotEqual(t, "super-secret", stored.AccessToken)
	assert.NotContains(t, stored.AccessToken, "super-secret")

	creds, err := credentials.GetCredentials(user.ID, models.PlatformVercel)
	require.NoError(t, err)
	assert.Equal(t, "super-secret", creds.AccessToken)
}
