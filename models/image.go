package models

import "time"

// Image is a stored, re-encoded upload owned by either a post or a comment.
// The data model keeps both foreign keys nullable; the service layer
// guarantees exactly one of them is set on creation.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"-"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	Format    string    `gorm:"size:16" json:"format"`
	PostID    *uint     `gorm:"index" json:"post_id,omitempty"`
	CommentID *uint     `gorm:"index" json:"comment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
