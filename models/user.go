package models

import (
	"time"

	"gorm.io/gorm"
)

// User mirrors a principal in the hosted identity provider. The provider owns
// credentials; this row only carries profile data keyed by the provider's
// stable subject identifier.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Sub            string    `gorm:"size:64;uniqueIndex;not null" json:"sub"`
	Email          string    `gorm:"size:255;not null" json:"email"`
	Username       string    `gorm:"size:64;not null" json:"username"`
	Bio            string    `gorm:"type:text" json:"bio"`
	ProfilePicture string    `gorm:"size:1024" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Posts          []Post    `json:"-"`
	Comments       []Comment `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Summary is the author shape embedded in post and comment payloads.
func (u *User) Summary() map[string]interface{} {
	return map[string]interface{}{
		"id":       u.ID,
		"username": u.Username,
	}
}
