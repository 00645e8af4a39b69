package models

import "time"

// Post status lifecycle. Only the first transition is automated: the first
// comment on a not_started post advances it to in_progress. Status never
// auto-reverts.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// ValidStatus reports whether s is one of the known post statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Post represents a board post created by a user. The author is immutable
// after creation.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Status    string    `gorm:"size:16;not null;default:'not_started'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Tags      []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Images    []Image   `json:"images"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
