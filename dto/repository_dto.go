package dto

// RegisterRepositoryRequest registers a source repository for the user
type RegisterRepositoryRequest struct {
	Owner         string `json:"owner" binding:"required"`
	Name          string `json:"name" binding:"required"`
	DefaultBranch string `json:"defaultBranch"`
}
