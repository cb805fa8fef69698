package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blogdeploy/config"
	"github.com/blogdeploy/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNetlifyProvider(server *httptest.Server) *NetlifyProvider {
	p := NewNetlifyProvider(config.OAuthCredentials{ClientID: "client", ClientSecret: "secret"})
	p.baseURL = server.URL
	return p
}

func TestNetlifyAuthorizationURL(t *testing.T) {
	p := NewNetlifyProvider(config.OAuthCredentials{ClientID: "client"})

	u, err := p.GetAuthorizationURL("http://localhost:8080/api/v1/oauth/netlify/callback", "state-token")
	require.NoError(t, err)
	assert.Contains(t, u, "https://app.netlify.com/authorize?")
	assert.Contains(t, u, "response_type=code")
	assert.Contains(t, u, "state=state-token")
}

func TestNetlifySiteDomainFlattening(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sites/site-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "site-1",
			"name":           "blog",
			"ssl_url":        "https://blog.netlify.app",
			"custom_domain":  "blog.example.com",
			"domain_aliases": []string{"www.example.com"},
		})
	}))
	defer server.Close()

	info, err := testNetlifyProvider(server).GetProject(context.Background(), Credentials{AccessToken: "t"}, "site-1")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.netlify.app", info.ProductionURL)
	// Primary domain first, then aliases in order
	assert.Equal(t, []string{"blog.example.com", "www.example.com"}, info.CustomDomains)
}

func TestNetlifyDeployPrefersDeployID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sites/site-1/builds", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "main", body["branch"])
		json.NewEncoder(w).Encode(map[string]string{"id": "build-1", "deploy_id": "deploy-9"})
	}))
	defer server.Close()

	result, err := testNetlifyProvider(server).Deploy(context.Background(), Credentials{AccessToken: "t"}, "site-1", DeployOptions{Branch: "main"})
	require.NoError(t, err)
	assert.Equal(t, "deploy-9", result.DeploymentID)
}

func TestNetlifyStateMapping(t *testing.T) {
	tests := []struct {
		state string
		want  models.DeploymentStatus
	}{
		{state: "new", want: models.DeploymentStatusPending},
		{state: "enqueued", want: models.DeploymentStatusPending},
		{state: "building", want: models.DeploymentStatusBuilding},
		{state: "processing", want: models.DeploymentStatusBuilding},
		{state: "ready", want: models.DeploymentStatusSuccess},
		{state: "current", want: models.DeploymentStatusSuccess},
		{state: "error", want: models.DeploymentStatusFailed},
		{state: "skipped", want: models.DeploymentStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.want, mapNetlifyState(tt.state))
		})
	}
}

func TestNetlifySetCustomDomainAppendsAlias(t *testing.T) {
	var patched map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":             "site-1",
				"custom_domain":  "blog.example.com",
				"domain_aliases": []string{"www.example.com"},
			})
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			json.NewEncoder(w).Encode(map[string]string{"id": "site-1"})
		}
	}))
	defer server.Close()

	result, err := testNetlifyProvider(server).SetCustomDomain(context.Background(), Credentials{AccessToken: "t"}, "site-1", "extra.example.com")
	require.NoError(t, err)
	assert.True(t, result.Configured)
	assert.Equal(t, []interface{}{"www.example.com", "extra.example.com"}, patched["domain_aliases"])
}

func TestNetlifyRemovePrimaryDomainClearsIt(t *testing.T) {
	var patched map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":            "site-1",
				"custom_domain": "blog.example.com",
			})
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			json.NewEncoder(w).Encode(map[string]string{"id": "site-1"})
		}
	}))
	defer server.Close()

	err := testNetlifyProvider(server).RemoveCustomDomain(context.Background(), Credentials{AccessToken: "t"}, "site-1", "blog.example.com")
	require.NoError(t, err)
	value, present := patched["custom_domain"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestNetlifyLogsNotSupported(t *testing.T) {
	p := NewNetlifyProvider(config.OAuthCredentials{})
	_, err := p.GetDeploymentLogs(context.Background(), Credentials{}, "site-1", "deploy-1", "")
	assert.ErrorIs(t, err, ErrNotSupported)
}
