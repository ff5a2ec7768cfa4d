package models

import "time"

// Reaction stores the aggregate tally for one (post, type) pair. It is not a
// per-user vote: repeated reactions keep incrementing the counter. Rows are
// written exclusively through an upsert-increment, never read-modify-write.
type Reaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_reactions_post_type" json:"post_id"`
	Type      string    `gorm:"size:32;not null;uniqueIndex:idx_reactions_post_type" json:"type"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReactionTypes is the fixed set of tallies reported for every post. Absent
// rows count as zero.
var ReactionTypes = []string{"like", "love", "clap", "insightful"}

// ValidReactionType reports whether t is one of the supported tallies.
func ValidReactionType(t string) bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}
