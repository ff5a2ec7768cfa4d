package models

import "time"

// Post represents a blog post created by a user. The slug is globally unique;
// collisions on the generated base are resolved by the create path, backed by
// the unique index here.
type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Slug       string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Published  bool       `gorm:"not null;default:false" json:"published"`
	CoverImage string     `gorm:"size:1024" json:"cover_image,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments   []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
	Reactions  []Reaction `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reactions,omitempty"`
}
