package models

// Tag is a named label attached to posts. Names are unique; the unique
// index backs the race-safe get-or-create upsert in the service layer.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Posts []Post `gorm:"many2many:post_tags;" json:"-"`
}
