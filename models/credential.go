package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlatformCredential stores a user's access token for one deployment platform.
// One row per (user, platform) pair, upserted on reconnect.
type PlatformCredential struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string    `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_credentials_user_platform"`
	Platform    Platform  `json:"platform" gorm:"type:varchar(32);not null;uniqueIndex:idx_credentials_user_platform"`
	AccessToken string    `json:"-" gorm:"not null"` // stored via the configured TokenCipher, never exposed in JSON
	TeamID      *string   `json:"teamId" gorm:"default:null"`
	AccountID   *string   `json:"accountId" gorm:"default:null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName sets the table name for PlatformCredential
func (PlatformCredential) TableName() string {
	return "platform_credentials"
}

// BeforeCreate assigns a UUID primary key
func (c *PlatformCredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
