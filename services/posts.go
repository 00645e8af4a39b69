package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

// PostInput is the canonical mutation payload for posts. Handlers have
// already normalized the wire format (JSON tag objects or a comma-separated
// multipart field) into TagNames, and uploads into raw bytes. Nil scalar
// pointers mean "keep the current value" on update.
type PostInput struct {
	Title    *string
	Body     *string
	Status   *string
	TagNames []string
	Uploads  [][]byte
}

// CreatePost persists a new post with its tag set and images in one
// transaction. The author comes from the authenticated caller, never from
// the payload.
func CreatePost(db *gorm.DB, authorID uint, in PostInput) (*models.Post, error) {
	title := ""
	if in.Title != nil {
		title = strings.TrimSpace(utils.SanitizeText(*in.Title))
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title", ErrValidation)
	}
	body := ""
	if in.Body != nil {
		body = utils.Sanitize(*in.Body)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body", ErrValidation)
	}
	status := models.StatusNotStarted
	if in.Status != nil && *in.Status != "" {
		if !models.ValidStatus(*in.Status) {
			return nil, fmt.Errorf("%w: status", ErrValidation)
		}
		status = *in.Status
	}

	post := models.Post{
		UserID: authorID,
		Title:  title,
		Body:   body,
		Status: status,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		tags, err := ResolveTags(tx, in.TagNames)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(&post).Association("Tags").Append(&tags); err != nil {
				return err
			}
		}
		if _, err := createPostImages(tx, post.ID, in.Uploads); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetPost(db, post.ID)
}

// UpdatePost applies a partial scalar update and fully replaces the tag set
// and image attachments. The tag set is rebuilt even when the input carries
// zero tags, and every prior image is deleted before new uploads are stored.
func UpdatePost(db *gorm.DB, postID uint, in PostInput) (*models.Post, error) {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(utils.SanitizeText(*in.Title))
		if title == "" {
			return nil, fmt.Errorf("%w: title", ErrValidation)
		}
		post.Title = title
	}
	if in.Body != nil {
		post.Body = utils.Sanitize(*in.Body)
	}
	if in.Status != nil && *in.Status != "" {
		if !models.ValidStatus(*in.Status) {
			return nil, fmt.Errorf("%w: status", ErrValidation)
		}
		post.Status = *in.Status
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&post).Error; err != nil {
			return err
		}
		if err := replacePostTags(tx, &post, in.TagNames); err != nil {
			return err
		}
		if err := deleteOwnedImages(tx, "post_id", post.ID); err != nil {
			return err
		}
		if _, err := createPostImages(tx, post.ID, in.Uploads); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetPost(db, post.ID)
}

// GetPost loads a post with author, tags, images, and comments.
func GetPost(db *gorm.DB, postID uint) (*models.Post, error) {
	var post models.Post
	err := db.
		Preload("User").
		Preload("Tags").
		Preload("Images").
		Preload("Comments").
		Preload("Comments.User").
		Preload("Comments.Images").
		First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ListPosts returns posts newest first, optionally filtered by status and a
// title/body search term.
func ListPosts(db *gorm.DB, status, search string, offset, limit int) ([]models.Post, int64, error) {
	query := db.Model(&models.Post{})
	if status != "" {
		if !models.ValidStatus(status) {
			return nil, 0, fmt.Errorf("%w: status", ErrValidation)
		}
		query = query.Where("status = ?", status)
	}
	if search != "" {
		query = query.Where("title LIKE ? OR body LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.
		Preload("User").
		Preload("Tags").
		Preload("Images").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// DeletePost removes a post together with its comments, all attached images,
// and its tag associations. Tags themselves are never deleted.
func DeletePost(db *gorm.DB, postID uint) error {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var comments []models.Comment
		if err := tx.Where("post_id = ?", post.ID).Find(&comments).Error; err != nil {
			return err
		}
		for _, c := range comments {
			if err := deleteOwnedImages(tx, "comment_id", c.ID); err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := deleteOwnedImages(tx, "post_id", post.ID); err != nil {
			return err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}
