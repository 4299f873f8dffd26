package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/handlers"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupRouter wires the full HTTP surface over an in-memory SQLite database,
// with no kafka producer and no redis cache.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	log := logger.NewLoggerWithLevel("error")

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	feedCfg := &config.FeedConfig{HomeLimit: 100}

	userService := services.NewUserService(userRepo, nil, log)
	graphService := services.NewGraphService(userRepo, followRepo, nil, log)
	messageService := services.NewMessageService(messageRepo, likeRepo, userRepo, nil, log)
	timelineService := services.NewTimelineService(messageRepo, userRepo, nil, feedCfg, log)

	jwtConfig := &middleware.JWTConfig{Secret: "test-secret"}

	userHandler := handlers.NewUserHandler(userService, graphService, messageService, jwtConfig, 3600)
	messageHandler := handlers.NewMessageHandler(messageService, timelineService)
	feedHandler := handlers.NewFeedHandler(timelineService)

	router := gin.New()
	api := router.Group("/api/v1")

	api.POST("/users/register", userHandler.Register)
	api.POST("/users/login", userHandler.Login)
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetProfile)
	api.GET("/users/:id/warbles", messageHandler.GetUserWarbles)
	api.GET("/warbles/:id", messageHandler.GetWarble)

	protected := api.Group("")
	protected.Use(middleware.NewJWTAuth(jwtConfig))
	protected.POST("/auth/logout", userHandler.Logout)
	protected.GET("/feed", feedHandler.GetHomeFeed)
	protected.GET("/users/:id/followers", userHandler.GetFollowers)
	protected.GET("/users/:id/following", userHandler.GetFollowing)
	protected.GET("/users/:id/likes", userHandler.GetLikes)
	protected.POST("/users/:id/follow", userHandler.Follow)
	protected.POST("/users/:id/unfollow", userHandler.Unfollow)
	protected.PUT("/users/profile", userHandler.UpdateProfile)
	protected.DELETE("/users/account", userHandler.DeleteAccount)
	protected.POST("/warbles", messageHandler.CreateWarble)
	protected.DELETE("/warbles/:id", messageHandler.DeleteWarble)
	protected.POST("/warbles/:id/like", messageHandler.LikeWarble)
	protected.DELETE("/warbles/:id/like", messageHandler.UnlikeWarble)

	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func registerUser(t *testing.T, router *gin.Engine, username string) (token, userID string) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	token = body["token"].(string)
	userID = body["user"].(map[string]interface{})["id"].(string)
	return token, userID
}

func TestRegisterLoginFlow(t *testing.T) {
	router := setupRouter(t)

	token, userID := registerUser(t, router, "alice")
	require.NotEmpty(t, token)
	require.NotEmpty(t, userID)

	// Duplicate signup reports a conflict without naming the field.
	w := doJSON(t, router, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "username or email already taken", decodeBody(t, w)["error"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMutationsRequireAuth(t *testing.T) {
	router := setupRouter(t)
	_, aliceID := registerUser(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/warbles", "", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/users/"+aliceID+"/follow", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWarbleAndFeedFlow(t *testing.T) {
	router := setupRouter(t)
	aliceToken, _ := registerUser(t, router, "alice")
	bobToken, bobID := registerUser(t, router, "bob")
	carolToken, _ := registerUser(t, router, "carol")

	// Alice follows bob.
	w := doJSON(t, router, http.MethodPost, "/api/v1/users/"+bobID+"/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Self-follow is rejected.
	w = doJSON(t, router, http.MethodPost, "/api/v1/users/"+bobID+"/follow", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Bob and carol post; alice follows only bob.
	w = doJSON(t, router, http.MethodPost, "/api/v1/warbles", bobToken, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	warbleID := decodeBody(t, w)["warble"].(map[string]interface{})["id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/warbles", carolToken, map[string]string{"text": "world"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Alice's feed contains exactly bob's warble, not carol's.
	w = doJSON(t, router, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	warbles := decodeBody(t, w)["warbles"].([]interface{})
	require.Len(t, warbles, 1)
	assert.Equal(t, "hello", warbles[0].(map[string]interface{})["text"])

	// Bob cannot like his own warble; alice can.
	w = doJSON(t, router, http.MethodPost, "/api/v1/warbles/"+warbleID+"/like", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/warbles/"+warbleID+"/like", aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Only the author may delete.
	w = doJSON(t, router, http.MethodDelete, "/api/v1/warbles/"+warbleID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/warbles/"+warbleID, bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleted warbles 404.
	w = doJSON(t, router, http.MethodGet, "/api/v1/warbles/"+warbleID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfileUpdateRequiresCurrentPassword(t *testing.T) {
	router := setupRouter(t)
	aliceToken, aliceID := registerUser(t, router, "alice")

	w := doJSON(t, router, http.MethodPut, "/api/v1/users/profile", aliceToken, map[string]string{
		"current_password": "wrong",
		"bio":              "new bio",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Nothing changed.
	w = doJSON(t, router, http.MethodGet, "/api/v1/users/"+aliceID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decodeBody(t, w)["user"].(map[string]interface{})
	assert.Empty(t, user["bio"])

	w = doJSON(t, router, http.MethodPut, "/api/v1/users/profile", aliceToken, map[string]string{
		"current_password": "password123",
		"bio":              "new bio",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteAccount(t *testing.T) {
	router := setupRouter(t)
	aliceToken, aliceID := registerUser(t, router, "alice")

	w := doJSON(t, router, http.MethodDelete, "/api/v1/users/account", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/users/"+aliceID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
