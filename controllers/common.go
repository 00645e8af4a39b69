package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askboard/askboard/config"
	"github.com/askboard/askboard/middleware"
	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

// tagPayload is the structured wire form of a tag reference.
type tagPayload struct {
	Name string `json:"name"`
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isStaff(ctx *gin.Context) bool {
	value, exists := ctx.Get(middleware.ContextIsStaffKey)
	if !exists {
		return false
	}
	staff, _ := value.(bool)
	return staff
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// serviceError maps service sentinel errors onto the response envelope.
func serviceError(ctx *gin.Context, err error, internalCode int, internalMsg string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, services.ErrReferential):
		utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	default:
		utils.Sugar.Errorf("%s: %v", internalMsg, err)
		utils.Error(ctx, http.StatusInternalServerError, internalCode, internalMsg)
	}
}

// collectTagNames normalizes both wire shapes of tag input to a flat name
// list: structured {name} objects from JSON payloads, or one comma-separated
// string from form fields. The domain layer never sees the difference.
func collectTagNames(structured []tagPayload, flat string) []string {
	names := make([]string, 0, len(structured))
	for _, t := range structured {
		names = append(names, t.Name)
	}
	for _, name := range strings.Split(flat, ",") {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return names
}

// readUploads drains every file in a multipart request into memory, capped
// by the configured upload size. Returns nil when the request carries no
// multipart form.
func readUploads(ctx *gin.Context) ([][]byte, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, nil
	}

	maxBytes := int64(config.Get().UploadMaxSizeMB) * 1024 * 1024
	var uploads [][]byte
	for _, headers := range form.File {
		for _, header := range headers {
			if header.Size > maxBytes {
				return nil, errors.New("uploaded file exceeds size limit")
			}
			f, err := header.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
			_ = f.Close()
			if err != nil {
				return nil, err
			}
			if int64(len(data)) > maxBytes {
				return nil, errors.New("uploaded file exceeds size limit")
			}
			uploads = append(uploads, data)
		}
	}
	return uploads, nil
}
