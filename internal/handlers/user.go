package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/services"
)

type UserHandler struct {
	userService    *services.UserService
	graphService   *services.GraphService
	messageService *services.MessageService
	jwtConfig      *middleware.JWTConfig
	tokenTTL       int64
}

func NewUserHandler(userService *services.UserService, graphService *services.GraphService, messageService *services.MessageService, jwtConfig *middleware.JWTConfig, tokenTTL int64) *UserHandler {
	if tokenTTL <= 0 {
		tokenTTL = 86400
	}
	return &UserHandler{
		userService:    userService,
		graphService:   graphService,
		messageService: messageService,
		jwtConfig:      jwtConfig,
		tokenTTL:       tokenTTL,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req services.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID.String(), user.Username, h.jwtConfig.Secret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Welcome to Warbler",
		"token":   token,
		"user":    user,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID.String(), user.Username, h.jwtConfig.Secret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := middleware.RevokeToken(c, h.jwtConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListUsers lists all users, or searches by username when `q` is present.
func (h *UserHandler) ListUsers(c *gin.Context) {
	offset, limit := pagination(c)
	query := c.Query("q")

	var err error
	var users []*models.User
	if query == "" {
		users, err = h.userService.List(c.Request.Context(), offset, limit)
	} else {
		users, err = h.userService.Search(c.Request.Context(), query, offset, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"offset": offset,
		"limit":  limit,
	})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
		"user":    user,
	})
}

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	actorID := middleware.GetUserID(c)

	if err := h.userService.DeleteAccount(c.Request.Context(), actorID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func (h *UserHandler) Follow(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	targetID := c.Param("id")

	following, err := h.graphService.Follow(c.Request.Context(), actorID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Followed",
		"following": following,
	})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	actorID := middleware.GetUserID(c)
	targetID := c.Param("id")

	if err := h.graphService.Unfollow(c.Request.Context(), actorID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed"})
}

func (h *UserHandler) GetFollowers(c *gin.Context) {
	offset, limit := pagination(c)

	followers, err := h.graphService.GetFollowers(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followers": followers,
		"offset":    offset,
		"limit":     limit,
	})
}

func (h *UserHandler) GetFollowing(c *gin.Context) {
	offset, limit := pagination(c)

	following, err := h.graphService.GetFollowing(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"following": following,
		"offset":    offset,
		"limit":     limit,
	})
}

// GetLikes shows the warbles a user has liked.
func (h *UserHandler) GetLikes(c *gin.Context) {
	offset, limit := pagination(c)

	messages, err := h.messageService.GetLikedMessages(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"likes":  messages,
		"offset": offset,
		"limit":  limit,
	})
}
