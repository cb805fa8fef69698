package models

import "fmt"

// Platform represents a supported deployment platform
type Platform string

const (
	PlatformGitHubPages     Platform = "github-pages"
	PlatformVercel          Platform = "vercel"
	PlatformNetlify         Platform = "netlify"
	PlatformCloudflarePages Platform = "cloudflare-pages"
)

// AllPlatforms lists every supported platform in display order
var AllPlatforms = []Platform{
	PlatformGitHubPages,
	PlatformVercel,
	PlatformNetlify,
	PlatformCloudflarePages,
}

// ParsePlatform validates a platform string from client input
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformGitHubPages, PlatformVercel, PlatformNetlify, PlatformCloudflarePages:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

// DisplayName returns a human-readable platform name for the settings UI
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGitHubPages:
		return "GitHub Pages"
	case PlatformVercel:
		return "Vercel"
	case PlatformNetlify:
		return "Netlify"
	case PlatformCloudflarePages:
		return "Cloudflare Pages"
	}
	return string(p)
}
