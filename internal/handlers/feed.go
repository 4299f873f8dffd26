package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/services"
)

type FeedHandler struct {
	timelineService *services.TimelineService
}

func NewFeedHandler(timelineService *services.TimelineService) *FeedHandler {
	return &FeedHandler{timelineService: timelineService}
}

// GetHomeFeed returns the viewer's home timeline: own warbles plus warbles
// from followed users, newest first.
func (h *FeedHandler) GetHomeFeed(c *gin.Context) {
	viewerID := middleware.GetUserID(c)

	limit := 0
	var q struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err == nil {
		limit = q.Limit
	}

	messages, err := h.timelineService.HomeTimeline(c.Request.Context(), viewerID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"warbles": messages})
}
