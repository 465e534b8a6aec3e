// Package server wires the entity services into the HTTP surface.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/apperror"
	"github.com/campusconnect/backend/internal/blogs"
	"github.com/campusconnect/backend/internal/challenges"
	"github.com/campusconnect/backend/internal/notifications"
	"github.com/campusconnect/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "campus_user_id"

var (
	errMissingTokenValidator = errors.New("token validator dependency required")
	errMissingUserService    = errors.New("user service dependency required")
	errMissingBlogService    = errors.New("blog service dependency required")
	errMissingChallenges     = errors.New("challenge service dependency required")
	errMissingNotifications  = errors.New("notification service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator resolves a bearer credential to a user identifier.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies collects everything the HTTP handler needs.
type Dependencies struct {
	Tokens        TokenValidator
	Users         *users.Service
	Blogs         *blogs.Service
	Challenges    *challenges.Service
	Notifications *notifications.Service
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tokens == nil {
		return nil, errMissingTokenValidator
	}
	if deps.Users == nil {
		return nil, errMissingUserService
	}
	if deps.Blogs == nil {
		return nil, errMissingBlogService
	}
	if deps.Challenges == nil {
		return nil, errMissingChallenges
	}
	if deps.Notifications == nil {
		return nil, errMissingNotifications
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:        deps.Tokens,
		users:         deps.Users,
		blogs:         deps.Blogs,
		challenges:    deps.Challenges,
		notifications: deps.Notifications,
		logger:        logger,
	}

	api := router.Group("/api")
	api.GET("/health", handler.handleHealth)
	api.POST("/signup", handler.handleSignUp)
	api.POST("/login", handler.handleLogIn)
	api.GET("/users/:id", handler.handlePublicProfile)
	api.GET("/blogs", handler.handleListBlogs)
	api.GET("/blogs/:id", handler.handleGetBlog)
	api.GET("/challenges", handler.handleListChallenges)
	api.GET("/leaderboard", handler.handleLeaderboard)

	protected := api.Group("")
	protected.Use(handler.authorizeRequest)
	protected.GET("/profile", handler.handleProfile)
	protected.PUT("/profile", handler.handleUpdateProfile)
	protected.GET("/bookmarks", handler.handleListBookmarks)
	protected.POST("/bookmarks", handler.handleAddBookmark)
	protected.PUT("/bookmarks/:id", handler.handleUpdateBookmark)
	protected.DELETE("/bookmarks/:id", handler.handleRemoveBookmark)
	protected.POST("/blogs", handler.handlePublishBlog)
	protected.PUT("/blogs/:id", handler.handleUpdateBlog)
	protected.POST("/blogs/:id/share", handler.handleShareBlog)
	protected.GET("/myblogs", handler.handleMyBlogs)
	protected.POST("/challenges", handler.handleCreateChallenge)
	protected.POST("/challenges/:id/join", handler.handleJoinChallenge)
	protected.GET("/notifications", handler.handleListNotifications)
	protected.DELETE("/notifications/:id", handler.handleDismissNotification)

	return router, nil
}

type httpHandler struct {
	tokens        TokenValidator
	users         *users.Service
	blogs         *blogs.Service
	challenges    *challenges.Service
	notifications *notifications.Service
	logger        *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// respondError maps the apperror taxonomy onto HTTP statuses. Unexpected
// errors are logged and surface only as a generic server error.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindDuplicateEmail, apperror.KindInvalidCredentials:
		status = http.StatusBadRequest
	case apperror.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperror.KindForbidden:
		status = http.StatusForbidden
	case apperror.KindNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperror.MessageOf(err)})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type signUpPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request signUpPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("name, email and password required"))
		return
	}
	account, token, err := h.users.SignUp(c.Request.Context(), request.Name, request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": account, "token": token})
}

type logInPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleLogIn(c *gin.Context) {
	var request logInPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("email and password required"))
		return
	}
	account, token, err := h.users.LogIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": account, "token": token})
}

func (h *httpHandler) handleProfile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

type updateProfilePayload struct {
	Name                 *string `json:"name"`
	Bio                  *string `json:"bio"`
	BookmarksEnabled     *bool   `json:"bookmarksEnabled"`
	DisableNotifications *bool   `json:"disableNotifications"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var request updateProfilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("invalid request body"))
		return
	}
	profile, err := h.users.UpdateProfile(c.Request.Context(), c.GetString(userIDContextKey), users.ProfilePatch{
		Name:                 request.Name,
		Bio:                  request.Bio,
		BookmarksEnabled:     request.BookmarksEnabled,
		DisableNotifications: request.DisableNotifications,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *httpHandler) handlePublicProfile(c *gin.Context) {
	profile, err := h.users.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (h *httpHandler) handleListBookmarks(c *gin.Context) {
	bookmarks, err := h.users.Bookmarks(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

type addBookmarkPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Href   string `json:"href"`
	Pinned bool   `json:"pinned"`
}

func (h *httpHandler) handleAddBookmark(c *gin.Context) {
	var request addBookmarkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("id and title required"))
		return
	}
	bookmarks, err := h.users.AddBookmark(c.Request.Context(), c.GetString(userIDContextKey), users.NewBookmark{
		ID:     request.ID,
		Title:  request.Title,
		Href:   request.Href,
		Pinned: request.Pinned,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

type updateBookmarkPayload struct {
	Pinned *bool `json:"pinned"`
}

func (h *httpHandler) handleUpdateBookmark(c *gin.Context) {
	var request updateBookmarkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("invalid request body"))
		return
	}
	bookmarks, err := h.users.UpdateBookmark(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id"), request.Pinned)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

func (h *httpHandler) handleRemoveBookmark(c *gin.Context) {
	bookmarks, err := h.users.RemoveBookmark(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}

type publishBlogPayload struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Essential bool   `json:"essential"`
	Mood      string `json:"mood"`
	Draft     bool   `json:"draft"`
}

func (h *httpHandler) handlePublishBlog(c *gin.Context) {
	var request publishBlogPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("title and content required"))
		return
	}
	view, err := h.blogs.Publish(c.Request.Context(), c.GetString(userIDContextKey), blogs.PublishRequest{
		Title:     request.Title,
		Content:   request.Content,
		Essential: request.Essential,
		Mood:      request.Mood,
		Draft:     request.Draft,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleListBlogs(c *gin.Context) {
	views, err := h.blogs.List(c.Request.Context(), true)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *httpHandler) handleGetBlog(c *gin.Context) {
	view, err := h.blogs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleMyBlogs(c *gin.Context) {
	views, err := h.blogs.ListByAuthor(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

type updateBlogPayload struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Essential *bool   `json:"essential"`
	Mood      *string `json:"mood"`
}

func (h *httpHandler) handleUpdateBlog(c *gin.Context) {
	var request updateBlogPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("title and content required"))
		return
	}
	view, err := h.blogs.Update(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id"), blogs.UpdateRequest{
		Title:     request.Title,
		Content:   request.Content,
		Essential: request.Essential,
		Mood:      request.Mood,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *httpHandler) handleShareBlog(c *gin.Context) {
	if err := h.blogs.Share(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type createChallengePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *httpHandler) handleCreateChallenge(c *gin.Context) {
	var request createChallengePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, apperror.Validation("title and description required"))
		return
	}
	challenge, err := h.challenges.Create(c.Request.Context(), c.GetString(userIDContextKey), request.Title, request.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

func (h *httpHandler) handleListChallenges(c *gin.Context) {
	list, err := h.challenges.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *httpHandler) handleJoinChallenge(c *gin.Context) {
	result, err := h.challenges.Join(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	list, err := h.notifications.ListForUser(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *httpHandler) handleDismissNotification(c *gin.Context) {
	if err := h.notifications.Dismiss(c.Request.Context(), c.GetString(userIDContextKey), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *httpHandler) handleLeaderboard(c *gin.Context) {
	entries, err := h.blogs.Leaderboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
