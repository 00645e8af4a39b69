package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

// TagController handles the tag catalogue.
type TagController struct {
	db *gorm.DB
}

// NewTagController creates a TagController.
func NewTagController(db *gorm.DB) *TagController {
	return &TagController{db: db}
}

// ListTags returns the catalogue with optional substring search.
func (t *TagController) ListTags(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))

	tags, total, err := services.ListTags(t.db, search, (page-1)*pageSize, pageSize)
	if err != nil {
		utils.Sugar.Errorf("list tags: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list tags")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      tags,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetTag returns one tag by ID.
func (t *TagController) GetTag(ctx *gin.Context) {
	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid tag id")
		return
	}

	tag, err := services.GetTag(t.db, id)
	if err != nil {
		serviceError(ctx, err, 50041, "failed to load tag")
		return
	}

	utils.Success(ctx, gin.H{"tag": tag})
}

// CreateTag registers a tag name directly. Posting the same name twice
// returns the existing row rather than an error.
func (t *TagController) CreateTag(ctx *gin.Context) {
	var req tagPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}

	tag, err := services.CreateTag(t.db, req.Name)
	if err != nil {
		serviceError(ctx, err, 50042, "failed to create tag")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"tag": tag})
}

// DeleteTag removes a tag and detaches it from every post. Staff only.
func (t *TagController) DeleteTag(ctx *gin.Context) {
	if !isStaff(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40304, "staff access required")
		return
	}

	id, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid tag id")
		return
	}

	if err := services.DeleteTag(t.db, id); err != nil {
		serviceError(ctx, err, 50043, "failed to delete tag")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.InvalidateByPrefix("cache:post:detail:")
	utils.Success(ctx, gin.H{"message": "tag deleted"})
}
