package service

import (
	"context"
	"errors"
	"io"

	"github.com/nitishkumar124/vekonnect/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrUsernameExists     = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrInvalidUsername    = errors.New("username too short after sanitization")
	ErrEmptyComment       = errors.New("comment text cannot be empty")
	ErrBioTooLong         = errors.New("bio exceeds maximum length")
	ErrCaptionTooLong     = errors.New("caption exceeds maximum length")
	ErrMissingImage       = errors.New("image file is required")
	ErrUpstream           = errors.New("upstream storage failure")
)

// UploadedFile carries an incoming multipart file part into the service layer.
type UploadedFile struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// AuthService handles registration and login.
type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
}

// UserService handles profiles and the follow graph.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest, avatar *UploadedFile) (*domain.UserSummary, error)
	// ToggleFollow flips the caller's follow edge toward targetID and returns
	// the canonical resulting state.
	ToggleFollow(ctx context.Context, callerID, targetID string) (*domain.FollowResult, error)
}

// PostService handles the feed, post creation, likes and comments.
type PostService interface {
	Feed(ctx context.Context) ([]domain.PostResponse, error)
	CreatePost(ctx context.Context, userID string, req *domain.CreatePostRequest, image *UploadedFile) (*domain.PostResponse, error)
	// ToggleLike flips the caller's like on postID and returns the canonical
	// resulting state.
	ToggleLike(ctx context.Context, userID, postID string) (*domain.LikeResult, error)
	AddComment(ctx context.Context, userID, postID string, req *domain.AddCommentRequest) (*domain.CommentResult, error)
}
