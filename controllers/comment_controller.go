package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

// CommentController handles comments, including the tag rebuild a comment
// may apply to its parent post.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type commentPayload struct {
	PostID     uint         `json:"post_id"`
	Body       *string      `json:"body"`
	ModifyTags bool         `json:"modify_tags"`
	Tags       []tagPayload `json:"tags"`
}

func bindCommentInput(ctx *gin.Context) (services.CommentInput, error) {
	var in services.CommentInput

	if strings.Contains(ctx.ContentType(), "multipart/form-data") {
		if v, ok := ctx.GetPostForm("post_id"); ok {
			if id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
				in.PostID = uint(id)
			}
		}
		if v, ok := ctx.GetPostForm("body"); ok {
			in.Body = &v
		}
		in.ModifyTags, _ = strconv.ParseBool(ctx.DefaultPostForm("modify_tags", "false"))
		in.TagNames = collectTagNames(nil, ctx.PostForm("tags"))
		uploads, err := readUploads(ctx)
		if err != nil {
			return in, err
		}
		in.Uploads = uploads
		return in, nil
	}

	var req commentPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return in, err
	}
	in.PostID = req.PostID
	in.Body = req.Body
	in.ModifyTags = req.ModifyTags
	in.TagNames = collectTagNames(req.Tags, "")
	return in, nil
}

// CreateComment files a comment by the authenticated user. The post comes
// from the URL when nested under /posts/:id/comments, else from the payload.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	in, err := bindCommentInput(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	if id, ok := parseUintParam(ctx, "id"); ok {
		in.PostID = id
	}
	if in.PostID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "post_id is required")
		return
	}

	comment, err := services.CreateComment(c.db, userID, in)
	if err != nil {
		serviceError(ctx, err, 50030, "failed to create comment")
		return
	}

	c.invalidateCommentCaches(in.PostID)
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"comment": comment})
}

// ListComments returns a post's comments oldest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid post id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	comments, total, err := services.ListComments(c.db, postID, (page-1)*pageSize, pageSize)
	if err != nil {
		serviceError(ctx, err, 50031, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      comments,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetComment returns a single comment with its author and images.
func (c *CommentController) GetComment(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid comment id")
		return
	}

	comment, err := services.GetComment(c.db, id)
	if err != nil {
		serviceError(ctx, err, 50032, "failed to load comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// UpdateComment applies a partial edit by the comment's author or staff.
// Attached images are rebuilt from the payload; the parent post's tags are
// rebuilt only when modify_tags is set.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid comment id")
		return
	}

	existing, authorized := c.canEditComment(ctx, id)
	if !authorized {
		return
	}

	in, err := bindCommentInput(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "invalid request payload")
		return
	}

	comment, err := services.UpdateComment(c.db, id, in)
	if err != nil {
		serviceError(ctx, err, 50033, "failed to update comment")
		return
	}

	c.invalidateCommentCaches(existing.PostID)
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes a comment and its images.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid comment id")
		return
	}

	existing, authorized := c.canEditComment(ctx, id)
	if !authorized {
		return
	}

	if err := services.DeleteComment(c.db, id); err != nil {
		serviceError(ctx, err, 50034, "failed to delete comment")
		return
	}

	c.invalidateCommentCaches(existing.PostID)
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

func (c *CommentController) canEditComment(ctx *gin.Context, commentID uint) (*models.Comment, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return nil, false
	}

	var comment models.Comment
	if err := c.db.Select("id", "post_id", "user_id").First(&comment, commentID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "comment not found")
		return nil, false
	}

	if comment.UserID != userID && !isStaff(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40303, "not the author")
		return nil, false
	}
	return &comment, true
}

func (c *CommentController) invalidateCommentCaches(postID uint) {
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	utils.InvalidateByPrefix("cache:posts:list:")
}
