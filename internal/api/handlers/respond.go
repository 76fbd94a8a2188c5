package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/service"
)

// statusFor maps service error kinds to HTTP codes.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindPrecondition, service.KindConflict:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if se.Kind == service.KindInternal {
		_ = c.Error(err)
	}

	body := gin.H{"error": se.Message}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	c.JSON(statusFor(se.Kind), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindJSON decodes the body into obj. An empty body leaves obj untouched.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid JSON body")
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive id query parameter.
func queryID(c *gin.Context, key string) (*int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "invalid "+key)
		return nil, false
	}
	return &id, true
}

// pageParams reads page and limit; garbage falls back to the defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}

func respondList(c *gin.Context, data any, p models.Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": p,
	})
}
