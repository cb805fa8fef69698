package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeploymentStatus represents the lifecycle state of one deployment attempt
type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "pending"
	DeploymentStatusBuilding  DeploymentStatus = "building"
	DeploymentStatusSuccess   DeploymentStatus = "success"
	DeploymentStatusFailed    DeploymentStatus = "failed"
	DeploymentStatusCancelled DeploymentStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are accepted from this status
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusSuccess || s == DeploymentStatusFailed || s == DeploymentStatusCancelled
}

// DeploymentTrigger identifies what initiated a history update
type DeploymentTrigger string

const (
	TriggerAPI     DeploymentTrigger = "api"
	TriggerWebhook DeploymentTrigger = "webhook"
)

// DeploymentHistory is one build-and-publish attempt for a project. Rows are
// appended per attempt and updated in place as status transitions arrive from
// polling or webhooks. Never deleted except via cascading project deletion.
type DeploymentHistory struct {
	ID                   string            `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID            string            `json:"projectId" gorm:"type:uuid;not null;index"`
	ExternalDeploymentID string            `json:"externalDeploymentId" gorm:"not null;index"`
	Status               DeploymentStatus  `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	DeploymentURL        *string           `json:"deploymentUrl" gorm:"default:null"`
	PreviewURL           *string           `json:"previewUrl" gorm:"default:null"`
	CommitSha            *string           `json:"commitSha" gorm:"default:null"`
	CommitMessage        *string           `json:"commitMessage" gorm:"default:null"`
	TriggeredBy          DeploymentTrigger `json:"triggeredBy" gorm:"type:varchar(16);not null;default:'api'"`
	ErrorMessage         *string           `json:"errorMessage" gorm:"default:null"`
	StartedAt            time.Time         `json:"startedAt"`
	CompletedAt          *time.Time        `json:"completedAt" gorm:"default:null"`

	// Relations
	Project DeploymentProject `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for DeploymentHistory
func (DeploymentHistory) TableName() string {
	return "deployment_history"
}

// BeforeCreate assigns a UUID primary key
func (h *DeploymentHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
