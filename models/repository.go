package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the source repository backing a blog. Content editing happens
// through the source-control client elsewhere; the deployment core only needs
// the ownership anchor and the owner/name pair for provider calls.
type Repository struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID        string    `json:"userId" gorm:"type:uuid;not null;index"`
	Owner         string    `json:"owner" gorm:"not null"`
	Name          string    `json:"name" gorm:"not null"`
	DefaultBranch string    `json:"defaultBranch" gorm:"default:'main'"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for Repository
func (Repository) TableName() string {
	return "repositories"
}

// BeforeCreate assigns a UUID primary key
func (r *Repository) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// FullName returns the owner/name form used by provider APIs
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}
