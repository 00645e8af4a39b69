package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/utils"
)

// createPostImages stores each upload and records it as owned by the post.
func createPostImages(tx *gorm.DB, postID uint, uploads [][]byte) ([]models.Image, error) {
	images := make([]models.Image, 0, len(uploads))
	for _, data := range uploads {
		stored, err := utils.StoreImage(data)
		if err != nil {
			if errors.Is(err, utils.ErrUnsupportedImage) {
				return nil, fmt.Errorf("%w: image", ErrValidation)
			}
			return nil, err
		}
		img := models.Image{
			FilePath: stored.FilePath,
			URL:      stored.URL,
			Format:   stored.Format,
			PostID:   &postID,
		}
		if err := tx.Create(&img).Error; err != nil {
			utils.RemoveStoredFile(stored.FilePath)
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// createCommentImages stores each upload and records it as owned by the comment.
func createCommentImages(tx *gorm.DB, commentID uint, uploads [][]byte) ([]models.Image, error) {
	images := make([]models.Image, 0, len(uploads))
	for _, data := range uploads {
		stored, err := utils.StoreImage(data)
		if err != nil {
			if errors.Is(err, utils.ErrUnsupportedImage) {
				return nil, fmt.Errorf("%w: image", ErrValidation)
			}
			return nil, err
		}
		img := models.Image{
			FilePath:  stored.FilePath,
			URL:       stored.URL,
			Format:    stored.Format,
			CommentID: &commentID,
		}
		if err := tx.Create(&img).Error; err != nil {
			utils.RemoveStoredFile(stored.FilePath)
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// deleteOwnedImages removes all image rows matching the owner column along
// with their stored files.
func deleteOwnedImages(tx *gorm.DB, ownerColumn string, ownerID uint) error {
	var images []models.Image
	if err := tx.Where(ownerColumn+" = ?", ownerID).Find(&images).Error; err != nil {
		return err
	}
	for _, img := range images {
		utils.RemoveStoredFile(img.FilePath)
	}
	if len(images) > 0 {
		if err := tx.Where(ownerColumn+" = ?", ownerID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetImage loads a single image record.
func GetImage(db *gorm.DB, id uint) (*models.Image, error) {
	var img models.Image
	if err := db.First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListImages returns image records, newest first.
func ListImages(db *gorm.DB, offset, limit int) ([]models.Image, int64, error) {
	var images []models.Image
	var total int64
	if err := db.Model(&models.Image{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&images).Error; err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// DeleteImage removes a single image row and its file.
func DeleteImage(db *gorm.DB, id uint) error {
	img, err := GetImage(db, id)
	if err != nil {
		return err
	}
	if err := db.Delete(&models.Image{}, id).Error; err != nil {
		return err
	}
	utils.RemoveStoredFile(img.FilePath)
	return nil
}

// SweepOrphanImages deletes image rows whose owning post or comment no
// longer exists, or that never received an owner, together with their files.
// Returns the number of rows removed.
func SweepOrphanImages(db *gorm.DB) (int, error) {
	var orphans []models.Image
	err := db.
		Joins("LEFT JOIN posts ON posts.id = images.post_id").
		Joins("LEFT JOIN comments ON comments.id = images.comment_id").
		Where("(images.post_id IS NULL AND images.comment_id IS NULL)" +
			" OR (images.post_id IS NOT NULL AND posts.id IS NULL)" +
			" OR (images.comment_id IS NOT NULL AND comments.id IS NULL)").
		Find(&orphans).Error
	if err != nil {
		return 0, err
	}
	for _, img := range orphans {
		utils.RemoveStoredFile(img.FilePath)
		if err := db.Delete(&models.Image{}, img.ID).Error; err != nil {
			return 0, err
		}
	}
	return len(orphans), nil
}

// StartOrphanImageSweep launches a background goroutine that periodically
// removes orphaned images. Best-effort; failures are logged and retried on
// the next tick.
func StartOrphanImageSweep(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			n, err := SweepOrphanImages(db)
			if err != nil {
				if utils.Sugar != nil {
					utils.Sugar.Warnf("orphan image sweep failed: %v", err)
				}
				continue
			}
			if n > 0 && utils.Sugar != nil {
				utils.Sugar.Infof("orphan image sweep removed %d images", n)
			}
		}
	}()
}
