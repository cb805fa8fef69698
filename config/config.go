package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from .env file
func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
}

// GetEnv gets an environment variable or returns a default value if not present
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// OAuthCredentials holds the client id/secret pair registered with a platform
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

// PlatformConfig carries all environment-supplied platform settings: OAuth
// apps, webhook signing secrets and the callback/settings URLs redirects land on.
type PlatformConfig struct {
	BaseCallbackURL string
	SettingsURL     string

	VercelOAuth  OAuthCredentials
	NetlifyOAuth OAuthCredentials

	WebhookSecrets map[string]string
}

// LoadPlatformConfig reads platform settings from the environment
func LoadPlatformConfig() *PlatformConfig {
	return &PlatformConfig{
		BaseCallbackURL: GetEnv("BASE_CALLBACK_URL", "http://localhost:8080"),
		SettingsURL:     GetEnv("SETTINGS_URL", "http://localhost:3000/settings/deployments"),
		VercelOAuth: OAuthCredentials{
			ClientID:     GetEnv("VERCEL_CLIENT_ID", ""),
			ClientSecret: GetEnv("VERCEL_CLIENT_SECRET", ""),
		},
		NetlifyOAuth: OAuthCredentials{
			ClientID:     GetEnv("NETLIFY_CLIENT_ID", ""),
			ClientSecret: GetEnv("NETLIFY_CLIENT_SECRET", ""),
		},
		WebhookSecrets: map[string]string{
			"github-pages":     GetEnv("GITHUB_WEBHOOK_SECRET", ""),
			"vercel":           GetEnv("VERCEL_WEBHOOK_SECRET", ""),
			"netlify":          GetEnv("NETLIFY_WEBHOOK_SECRET", ""),
			"cloudflare-pages": GetEnv("CLOUDFLARE_WEBHOOK_SECRET", ""),
		},
	}
}
