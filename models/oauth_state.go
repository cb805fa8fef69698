package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthState is a single-use anti-CSRF token for the authorization-code flow.
// Issued at authorization initiation, consumed (deleted) exactly once at callback.
type OAuthState struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"userId" gorm:"type:uuid;not null;index"`
	Platform  Platform  `json:"platform" gorm:"type:varchar(32);not null"`
	State     string    `json:"state" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName sets the table name for OAuthState
func (OAuthState) TableName() string {
	return "oauth_states"
}

// BeforeCreate assigns a UUID primary key
func (s *OAuthState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
