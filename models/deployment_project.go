package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeploymentProject links a source repository to a project on a deployment
// platform. At most one project per (repository, platform) pair; re-running
// setup upserts instead of duplicating.
type DeploymentProject struct {
	ID                string    `json:"id" gorm:"primaryKey;type:uuid"`
	RepositoryID      string    `json:"repositoryId" gorm:"type:uuid;not null;uniqueIndex:idx_projects_repo_platform"`
	Platform          Platform  `json:"platform" gorm:"type:varchar(32);not null;uniqueIndex:idx_projects_repo_platform"`
	ExternalProjectID string    `json:"externalProjectId" gorm:"not null"`
	ProjectName       string    `json:"projectName" gorm:"not null"`
	ProductionURL     string    `json:"productionUrl"`
	CustomDomains     []string  `json:"customDomains" gorm:"serializer:json"`
	IsActive          bool      `json:"isActive" gorm:"default:true"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// Relations
	Repository  Repository          `json:"repository,omitempty" gorm:"foreignKey:RepositoryID;constraint:OnDelete:CASCADE"`
	Deployments []DeploymentHistory `json:"deployments,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for DeploymentProject
func (DeploymentProject) TableName() string {
	return "deployment_projects"
}

// BeforeCreate assigns a UUID primary key
func (p *DeploymentProject) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasDomain reports whether the domain is already attached to the project
func (p *DeploymentProject) HasDomain(domain string) bool {
	for _, d := range p.CustomDomains {
		if d == domain {
			return true
		}
	}
	return false
}
