package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

// NormalizeTagNames trims whitespace, strips markup, drops empties, and
// collapses duplicates while keeping first-occurrence order. Tag identity is
// exact and case-sensitive, so no case folding happens here.
func NormalizeTagNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(utils.SanitizeText(name))
		if name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return utils.UniqueStrings(cleaned)
}

// GetOrCreateTag returns the tag with the given exact name, creating it when
// absent. The insert rides on the unique index over tags.name so concurrent
// callers never produce duplicates: insert-or-ignore, then read back.
func GetOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	tag := models.Tag{Name: name}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("upsert tag %q: %w", name, err)
	}
	if tag.ID == 0 {
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, fmt.Errorf("load tag %q after upsert: %w", name, err)
		}
	}
	return &tag, nil
}

// ResolveTags get-or-creates every normalized name and returns the tags in
// input order.
func ResolveTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	names = NormalizeTagNames(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, err := GetOrCreateTag(tx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// CreateTag makes a tag by exact name, reusing an existing record when the
// name is already taken.
func CreateTag(db *gorm.DB, name string) (*models.Tag, error) {
	name = strings.TrimSpace(utils.SanitizeText(name))
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrValidation)
	}
	return GetOrCreateTag(db, name)
}

// GetTag loads a tag by ID.
func GetTag(db *gorm.DB, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := db.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// ListTags returns tags ordered by name. A search term filters by
// case-insensitive substring; identity stays exact-match.
func ListTags(db *gorm.DB, search string, offset, limit int) ([]models.Tag, int64, error) {
	query := db.Model(&models.Tag{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tags []models.Tag
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&tags).Error; err != nil {
		return nil, 0, err
	}
	return tags, total, nil
}

// DeleteTag removes a tag and its post associations.
func DeleteTag(db *gorm.DB, id uint) error {
	tag, err := GetTag(db, id)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(tag).Association("Posts").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Tag{}, tag.ID).Error
	})
}

// replacePostTags clears the post's tag associations and rebuilds them from
// the given names. An empty name list leaves the post untagged.
func replacePostTags(tx *gorm.DB, post *models.Post, names []string) error {
	if err := tx.Model(post).Association("Tags").Clear(); err != nil {
		return err
	}
	tags, err := ResolveTags(tx, names)
	if err != nil {
		return err
	}
	if len(tags) > 0 {
		return tx.Model(post).Association("Tags").Append(&tags)
	}
	return nil
}
