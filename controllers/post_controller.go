package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

// PostController handles post CRUD and the similar-post search.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// postPayload is the JSON body of create/update requests. Multipart requests
// carry the same fields flat, with tags as one comma-separated string.
type postPayload struct {
	Title  *string      `json:"title"`
	Body   *string      `json:"body"`
	Status *string      `json:"status"`
	Tags   []tagPayload `json:"tags"`
}

// bindPostInput normalizes both wire formats into the canonical mutation
// payload before any domain code runs.
func bindPostInput(ctx *gin.Context) (services.PostInput, error) {
	var in services.PostInput

	if strings.Contains(ctx.ContentType(), "multipart/form-data") {
		if v, ok := ctx.GetPostForm("title"); ok {
			in.Title = &v
		}
		if v, ok := ctx.GetPostForm("body"); ok {
			in.Body = &v
		}
		if v, ok := ctx.GetPostForm("status"); ok {
			in.Status = &v
		}
		in.TagNames = collectTagNames(nil, ctx.PostForm("tags"))
		uploads, err := readUploads(ctx)
		if err != nil {
			return in, err
		}
		in.Uploads = uploads
		return in, nil
	}

	var req postPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return in, err
	}
	in.Title = req.Title
	in.Body = req.Body
	in.Status = req.Status
	in.TagNames = collectTagNames(req.Tags, "")
	return in, nil
}

// CreatePost creates a post owned by the authenticated user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	in, err := bindPostInput(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	post, err := services.CreatePost(p.db, userID, in)
	if err != nil {
		serviceError(ctx, err, 50020, "failed to create post")
		return
	}

	p.invalidatePostCaches(post.ID)
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"post": post})
}

// ListPosts returns paginated posts with optional status filter and title
// search. Unfiltered pages are cached to keep the homepage cheap.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	status := strings.TrimSpace(ctx.Query("status"))

	if status != "" && !models.ValidStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid status filter")
		return
	}

	cacheKey := ""
	if search == "" {
		cacheKey = fmt.Sprintf("cache:posts:list:status=%s:page=%d:size=%d", status, page, pageSize)
		if b, hit := utils.CacheGetBytes(cacheKey); hit {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	posts, total, err := services.ListPosts(p.db, status, search, (page-1)*pageSize, pageSize)
	if err != nil {
		utils.Sugar.Errorf("list posts: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list posts")
		return
	}

	payload := gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	}
	if cacheKey != "" {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its author, tags, images and comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid post id")
		return
	}
	idStr := ctx.Param("id")

	if b, hit := utils.CacheGetBytes("cache:post:detail:" + idStr); hit {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	post, err := services.GetPost(p.db, id)
	if err != nil {
		serviceError(ctx, err, 50022, "failed to load post")
		return
	}

	payload := gin.H{"post": post}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON("cache:post:detail:"+idStr, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// UpdatePost applies a partial update. Only the author or staff may edit,
// and the tag set plus image attachments are rebuilt from the payload.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid post id")
		return
	}

	if !p.canEditPost(ctx, id) {
		return
	}

	in, err := bindPostInput(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}

	post, err := services.UpdatePost(p.db, id, in)
	if err != nil {
		serviceError(ctx, err, 50023, "failed to update post")
		return
	}

	p.invalidatePostCaches(id)
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post together with its comments and images.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid post id")
		return
	}

	if !p.canEditPost(ctx, id) {
		return
	}

	if err := services.DeletePost(p.db, id); err != nil {
		serviceError(ctx, err, 50024, "failed to delete post")
		return
	}

	p.invalidatePostCaches(id)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// SimilarPosts ranks existing posts against the supplied tag phrases. The
// endpoint powers duplicate detection before a new post is filed.
func (p *PostController) SimilarPosts(ctx *gin.Context) {
	var req struct {
		Tags []tagPayload `json:"tags"`
	}
	phrases := []string{}
	if strings.Contains(ctx.ContentType(), "multipart/form-data") || ctx.Request.Method == http.MethodGet {
		phrases = collectTagNames(nil, ctx.DefaultPostForm("tags", ctx.Query("tags")))
	} else {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
			return
		}
		phrases = collectTagNames(req.Tags, "")
	}

	ranked, err := services.FindSimilarPosts(p.db, phrases)
	if err != nil {
		serviceError(ctx, err, 50025, "failed to search similar posts")
		return
	}

	utils.Success(ctx, gin.H{"items": ranked})
}

// canEditPost loads the post's author and enforces author-or-staff access.
// It writes the error response itself and reports whether to proceed.
func (p *PostController) canEditPost(ctx *gin.Context, postID uint) bool {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return false
	}

	var post models.Post
	if err := p.db.Select("id", "user_id").First(&post, postID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
		return false
	}

	if post.UserID != userID && !isStaff(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40302, "not the author")
		return false
	}
	return true
}

func (p *PostController) invalidatePostCaches(postID uint) {
	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
}
