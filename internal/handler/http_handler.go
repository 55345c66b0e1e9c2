package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/metrics"
	"github.com/nitishkumar124/vekonnect/internal/middleware"
	"github.com/nitishkumar124/vekonnect/internal/service"
	"github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/response"
)

// maxUploadBytes caps incoming multipart bodies.
const maxUploadBytes = 10 << 20

// Handler handles HTTP requests.
type Handler struct {
	authService    service.AuthService
	userService    service.UserService
	postService    service.PostService
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	collector      *metrics.Collector
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	authService service.AuthService,
	userService service.UserService,
	postService service.PostService,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	collector *metrics.Collector,
) *Handler {
	return &Handler{
		authService:    authService,
		userService:    userService,
		postService:    postService,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		collector:      collector,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", h.collector.Handler())

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(h.rateLimiter.AuthMiddleware())
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		posts := api.Group("/posts")
		posts.Use(h.authMiddleware.RequireAuth(), h.rateLimiter.GeneralMiddleware())
		{
			posts.GET("", h.Feed)
			posts.POST("", h.CreatePost)
			posts.PUT("/:id/like", h.ToggleLike)
			posts.POST("/:id/comment", h.AddComment)
		}

		users := api.Group("/users")
		users.Use(h.authMiddleware.RequireAuth(), h.rateLimiter.GeneralMiddleware())
		{
			users.GET("/:id", h.GetProfile)
			users.PUT("/profile", h.UpdateProfile)
			users.PUT("/:id/follow", h.ToggleFollow)
		}
	}
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, "invalid registration payload", err.Error())
		return
	}

	result, err := h.authService.Register(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.BadRequest(c, "email already exists")
		case errors.Is(err, service.ErrUsernameExists):
			response.BadRequest(c, "username already exists")
		case errors.Is(err, service.ErrInvalidUsername):
			response.BadRequest(c, "username must be at least 3 characters")
		default:
			l.Error().Err(err).Msg("register failed")
			response.InternalError(c, "failed to register user")
		}
		return
	}

	h.collector.RecordRegistration()
	response.Created(c, "user registered", result)
}

// Login handles user login.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, "invalid login payload", err.Error())
		return
	}

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	h.collector.RecordLogin()
	response.Success(c, "login successful", result)
}

// Feed returns recent posts newest first.
func (h *Handler) Feed(c *gin.Context) {
	ctx := c.Request.Context()

	posts, err := h.postService.Feed(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to load feed")
		response.InternalError(c, "failed to load feed")
		return
	}

	response.Success(c, "feed loaded", posts)
}

// CreatePost handles multipart post creation.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		l.Warn().Err(err).Msg("failed to open uploaded image")
		response.BadRequest(c, "could not read image file")
		return
	}
	defer file.Close()
	image := uploadedFile(fileHeader, file)

	req := domain.CreatePostRequest{Caption: c.PostForm("caption")}

	result, err := h.postService.CreatePost(ctx, userID, &req, image)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaptionTooLong):
			response.BadRequest(c, "caption exceeds maximum length")
		case errors.Is(err, service.ErrMissingImage):
			response.BadRequest(c, "image file is required")
		case errors.Is(err, service.ErrUpstream):
			response.BadGateway(c, "image storage is unavailable")
		default:
			l.Error().Err(err).Msg("failed to create post")
			response.InternalError(c, "failed to create post")
		}
		return
	}

	h.collector.RecordPostCreated()
	response.Created(c, "post created", result)
}

// ToggleLike flips the caller's like on a post.
func (h *Handler) ToggleLike(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	postID := c.Param("id")

	result, err := h.postService.ToggleLike(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to toggle like")
		response.InternalError(c, "failed to toggle like")
		return
	}

	h.collector.RecordLikeToggle()
	response.Success(c, "like updated", result)
}

// AddComment appends a comment to a post.
func (h *Handler) AddComment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	postID := c.Param("id")

	var req domain.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "comment text is required", err.Error())
		return
	}

	result, err := h.postService.AddComment(ctx, userID, postID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyComment):
			response.BadRequest(c, "comment text cannot be empty")
		case errors.Is(err, service.ErrPostNotFound):
			response.NotFound(c, "post not found")
		default:
			l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to add comment")
			response.InternalError(c, "failed to add comment")
		}
		return
	}

	h.collector.RecordComment()
	response.Created(c, "comment added", result)
}

// GetProfile returns a user with their posts and follow edges.
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	targetID := c.Param("id")

	result, err := h.userService.GetProfile(ctx, targetID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldTargetID, targetID).Msg("failed to load profile")
		response.InternalError(c, "failed to load profile")
		return
	}

	response.Success(c, "profile loaded", result)
}

// UpdateProfile applies multipart profile updates to the caller.
func (h *Handler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(c, "invalid multipart payload")
		return
	}

	req := domain.UpdateProfileRequest{
		Username: formValue(c, "username"),
		Email:    formValue(c, "email"),
		Bio:      formValue(c, "bio"),
	}

	var avatar *service.UploadedFile
	if fileHeader, err := c.FormFile("avatar"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			l.Warn().Err(err).Msg("failed to open uploaded avatar")
			response.BadRequest(c, "could not read avatar file")
			return
		}
		defer file.Close()
		avatar = uploadedFile(fileHeader, file)
	}

	result, err := h.userService.UpdateProfile(ctx, userID, &req, avatar)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.BadRequest(c, "email already exists")
		case errors.Is(err, service.ErrUsernameExists):
			response.BadRequest(c, "username already exists")
		case errors.Is(err, service.ErrInvalidUsername):
			response.BadRequest(c, "username must be at least 3 characters")
		case errors.Is(err, service.ErrBioTooLong):
			response.BadRequest(c, "bio exceeds maximum length")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		case errors.Is(err, service.ErrUpstream):
			response.BadGateway(c, "image storage is unavailable")
		default:
			l.Error().Err(err).Msg("failed to update profile")
			response.InternalError(c, "failed to update profile")
		}
		return
	}

	response.Success(c, "profile updated", result)
}

// ToggleFollow flips the caller's follow edge toward the target user.
func (h *Handler) ToggleFollow(c *gin.Context) {
	ctx := c.Request.Context()
	callerID := middleware.GetUserID(c)
	targetID := c.Param("id")

	result, err := h.userService.ToggleFollow(ctx, callerID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfFollow):
			response.BadRequest(c, "cannot follow yourself")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "user not found")
		default:
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldTargetID, targetID).Msg("failed to toggle follow")
			response.InternalError(c, "failed to toggle follow")
		}
		return
	}

	h.collector.RecordFollowToggle()
	response.Success(c, "follow updated", result)
}

// formValue returns a pointer to the form field value, or nil when the field
// was not submitted at all.
func formValue(c *gin.Context, field string) *string {
	if values, ok := c.GetPostForm(field); ok {
		return &values
	}
	return nil
}

// uploadedFile adapts an opened multipart file into an UploadedFile.
func uploadedFile(fh *multipart.FileHeader, f multipart.File) *service.UploadedFile {
	return &service.UploadedFile{
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}
}
