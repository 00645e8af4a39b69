package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

// CommentInput is the canonical mutation payload for comments. ModifyTags
// gates only the parent post's tag rebuild; image attachment is independent
// of it.
type CommentInput struct {
	PostID     uint
	Body       *string
	ModifyTags bool
	TagNames   []string
	Uploads    [][]byte
}

// CreateComment persists a comment against an existing post. The first
// comment on a not_started post advances it to in_progress; the transition
// never runs in reverse. When ModifyTags is set the parent post's tag set is
// cleared and rebuilt from the input.
func CreateComment(db *gorm.DB, authorID uint, in CommentInput) (*models.Comment, error) {
	body := ""
	if in.Body != nil {
		body = utils.Sanitize(*in.Body)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body", ErrValidation)
	}

	var post models.Post
	if err := db.First(&post, in.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: post %d", ErrReferential, in.PostID)
		}
		return nil, err
	}

	comment := models.Comment{
		PostID: post.ID,
		UserID: authorID,
		Body:   body,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		if post.Status == models.StatusNotStarted {
			if err := tx.Model(&post).Update("status", models.StatusInProgress).Error; err != nil {
				return err
			}
		}
		if in.ModifyTags {
			if err := replacePostTags(tx, &post, in.TagNames); err != nil {
				return err
			}
		}
		if _, err := createCommentImages(tx, comment.ID, in.Uploads); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetComment(db, comment.ID)
}

// UpdateComment applies a partial body update, unconditionally replaces the
// comment's images, and when ModifyTags is set rebuilds the parent post's
// tag set.
func UpdateComment(db *gorm.DB, commentID uint, in CommentInput) (*models.Comment, error) {
	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.Body != nil {
		body := utils.Sanitize(*in.Body)
		if strings.TrimSpace(body) == "" {
			return nil, fmt.Errorf("%w: body", ErrValidation)
		}
		comment.Body = body
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&comment).Error; err != nil {
			return err
		}
		if err := deleteOwnedImages(tx, "comment_id", comment.ID); err != nil {
			return err
		}
		if _, err := createCommentImages(tx, comment.ID, in.Uploads); err != nil {
			return err
		}
		if in.ModifyTags {
			var post models.Post
			if err := tx.First(&post, comment.PostID).Error; err != nil {
				return err
			}
			if err := replacePostTags(tx, &post, in.TagNames); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetComment(db, comment.ID)
}

// GetComment loads a comment with author and images.
func GetComment(db *gorm.DB, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := db.
		Preload("User").
		Preload("Images").
		First(&comment, commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// ListComments returns comments, optionally scoped to one post, oldest first.
func ListComments(db *gorm.DB, postID uint, offset, limit int) ([]models.Comment, int64, error) {
	query := db.Model(&models.Comment{})
	if postID != 0 {
		query = query.Where("post_id = ?", postID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := query.
		Preload("User").
		Preload("Images").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// DeleteComment removes a comment and its images.
func DeleteComment(db *gorm.DB, commentID uint) error {
	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOwnedImages(tx, "comment_id", comment.ID); err != nil {
			return err
		}
		return tx.Delete(&comment).Error
	})
}
