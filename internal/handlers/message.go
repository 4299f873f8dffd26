package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/services"
)

type MessageHandler struct {
	messageService  *services.MessageService
	timelineService *services.TimelineService
}

func NewMessageHandler(messageService *services.MessageService, timelineService *services.TimelineService) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		timelineService: timelineService,
	}
}

func (h *MessageHandler) CreateWarble(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	var req services.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Post(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Warble posted",
		"warble":  message,
	})
}

func (h *MessageHandler) GetWarble(c *gin.Context) {
	message, err := h.messageService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"warble": message})
}

func (h *MessageHandler) DeleteWarble(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	if err := h.messageService.Delete(c.Request.Context(), actorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Warble deleted"})
}

func (h *MessageHandler) LikeWarble(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	if err := h.messageService.Like(c.Request.Context(), actorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Warble liked"})
}

func (h *MessageHandler) UnlikeWarble(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	if err := h.messageService.Unlike(c.Request.Context(), actorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Warble unliked"})
}

// GetUserWarbles is the profile-page timeline: one author, no follow filter.
func (h *MessageHandler) GetUserWarbles(c *gin.Context) {
	limit := 0
	var q struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err == nil {
		limit = q.Limit
	}

	messages, err := h.timelineService.UserTimeline(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"warbles": messages})
}
