package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{input: "github-pages", want: PlatformGitHubPages},
		{input: "vercel", want: PlatformVercel},
		{input: "netlify", want: PlatformNetlify},
		{input: "cloudflare-pages", want: PlatformCloudflarePages},
		{input: "heroku", wantErr: true},
		{input: "", wantErr: true},
		{input: "Vercel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlatform(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeploymentStatusIsTerminal(t *testing.T) {
	assert.False(t, DeploymentStatusPending.IsTerminal())
	assert.False(t, DeploymentStatusBuilding.IsTerminal())
	assert.True(t, DeploymentStatusSuccess.IsTerminal())
	assert.True(t, DeploymentStatusFailed.IsTerminal())
	assert.True(t, DeploymentStatusCancelled.IsTerminal())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "GitHub Pages", PlatformGitHubPages.DisplayName())
	assert.Equal(t, "Vercel", PlatformVercel.DisplayName())
	assert.Equal(t, "Netlify", PlatformNetlify.DisplayName())
	assert.Equal(t, "Cloudflare Pages", PlatformCloudflarePages.DisplayName())
}
