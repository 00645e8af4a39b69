package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

// ImageController exposes the image inventory. Image creation happens
// through post and comment mutations, never here.
type ImageController struct {
	db *gorm.DB
}

// NewImageController creates an ImageController.
func NewImageController(db *gorm.DB) *ImageController {
	return &ImageController{db: db}
}

// ListImages returns the image inventory. Staff only.
func (i *ImageController) ListImages(ctx *gin.Context) {
	if !isStaff(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40305, "staff access required")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	images, total, err := services.ListImages(i.db, (page-1)*pageSize, pageSize)
	if err != nil {
		utils.Sugar.Errorf("list images: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to list images")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      images,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetImage returns one image record by ID.
func (i *ImageController) GetImage(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid image id")
		return
	}

	image, err := services.GetImage(i.db, id)
	if err != nil {
		serviceError(ctx, err, 50051, "failed to load image")
		return
	}

	utils.Success(ctx, gin.H{"image": image})
}

// DeleteImage removes an image record and its stored file. The caller must
// own the post or comment the image hangs off, or be staff.
func (i *ImageController) DeleteImage(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid image id")
		return
	}

	image, err := services.GetImage(i.db, id)
	if err != nil {
		serviceError(ctx, err, 50052, "failed to load image")
		return
	}

	if !i.canDeleteImage(ctx, image.PostID, image.CommentID) {
		return
	}

	if err := services.DeleteImage(i.db, id); err != nil {
		serviceError(ctx, err, 50053, "failed to delete image")
		return
	}

	if image.PostID != nil {
		utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(*image.PostID)))
	}
	utils.Success(ctx, gin.H{"message": "image deleted"})
}

func (i *ImageController) canDeleteImage(ctx *gin.Context, postID, commentID *uint) bool {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return false
	}
	if isStaff(ctx) {
		return true
	}

	var ownerID uint
	switch {
	case commentID != nil:
		var row struct{ UserID uint }
		if err := i.db.Table("comments").Select("user_id").Where("id = ?", *commentID).Scan(&row).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to resolve image owner")
			return false
		}
		ownerID = row.UserID
	case postID != nil:
		var row struct{ UserID uint }
		if err := i.db.Table("posts").Select("user_id").Where("id = ?", *postID).Scan(&row).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to resolve image owner")
			return false
		}
		ownerID = row.UserID
	default:
		// orphan rows are staff territory
		utils.Error(ctx, http.StatusForbidden, 40306, "staff access required")
		return false
	}

	if ownerID != userID {
		utils.Error(ctx, http.StatusForbidden, 40306, "not the owner")
		return false
	}
	return true
}
