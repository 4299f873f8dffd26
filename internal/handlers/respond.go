package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/models"
)

// respondError maps a domain error kind to an HTTP status. Unclassified
// errors become 500s without leaking internals.
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case models.KindUnauthenticated:
		status = http.StatusUnauthorized
	case models.KindForbidden:
		status = http.StatusForbidden
	case models.KindSelfReference, models.KindValidation:
		status = http.StatusBadRequest
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindConflict:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": appErr.Message, "code": string(appErr.Kind)})
}

type pageQuery struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

func pagination(c *gin.Context) (int, int) {
	offset := 0
	limit := 20

	var q pageQuery
	if err := c.ShouldBindQuery(&q); err == nil {
		offset = q.Offset
		limit = q.Limit
	}
	if offset < 0 {
		offset = 0
	}
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	return offset, limit
}
