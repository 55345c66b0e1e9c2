package repository

import (
	"context"
	"errors"

	"github.com/nitishkumar124/vekonnect/internal/domain"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	ErrPostNotFound = errors.New("post not found")
	ErrAlreadyLiked = errors.New("already liked")
	ErrNotLiked     = errors.New("not liked")

	ErrFollowNotFound   = errors.New("follow relationship not found")
	ErrAlreadyFollowing = errors.New("already following")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// EmailTaken reports whether another user (excluding excludeID) holds the email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	// UsernameTaken reports whether another user (excluding excludeID) holds the username.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
}

// PostRepository defines persistence operations for posts, likes and comments.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// ListRecent returns posts ordered newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.Post, error)
	// ListByUser returns a user's posts ordered newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Post, error)

	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	LikerIDs(ctx context.Context, postID string) ([]string, error)
	// BatchLikerIDs returns the like set for each of the given posts.
	BatchLikerIDs(ctx context.Context, postIDs []string) (map[string][]string, error)

	AddComment(ctx context.Context, comment *domain.Comment) error
	// ListComments returns a post's comments in insertion order.
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	// BatchListComments returns the ordered comment sequence for each of the given posts.
	BatchListComments(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error)
}

// FollowRepository defines persistence operations for follow relationships.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowersCount(ctx context.Context, userID string) (int64, error)
	FollowingCount(ctx context.Context, userID string) (int64, error)
}
