package dto

// CreateProjectRequest creates (or re-runs setup for) a deployment project
// backed by one of the user's repositories.
type CreateProjectRequest struct {
	RepositoryID string `json:"repositoryId" binding:"required"`
	Platform     string `json:"platform" binding:"required"`
	Name         string `json:"name"`
}

// DeployRequest triggers one deployment attempt
type DeployRequest struct {
	Branch       string `json:"branch"`
	CommitSha    string `json:"commitSha"`
	IsProduction bool   `json:"isProduction"`
}

// AddDomainRequest attaches a custom domain to a project
type AddDomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}
