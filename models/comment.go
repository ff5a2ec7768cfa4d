package models

import "time"

// Comment belongs to a post, optionally to a user (nil means anonymous), and
// optionally to a parent comment. The tree is two levels deep: top-level
// comments have ParentID nil, replies point at a top-level comment, and
// replies to replies are rejected at write time.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"author,omitempty"`
	Replies   []Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE;" json:"replies,omitempty"`
}

// TopLevel reports whether the comment is directly attached to its post.
func (c *Comment) TopLevel() bool {
	return c.ParentID == nil
}
