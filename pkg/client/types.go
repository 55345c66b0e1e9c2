package client

import (
	"fmt"
	"time"
)

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// APIError carries a non-2xx server response.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// User is a user as returned by the API.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	AvatarURL      string    `json:"avatar_url"`
	Bio            string    `json:"bio"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Author is the populated author info on a post.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Comment is a single comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a post as returned by the API.
type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption"`
	Likes     []string  `json:"likes"`
	LikeCount int64     `json:"like_count"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is the payload of register and login responses.
type AuthResult struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Profile is the payload of a profile lookup.
type Profile struct {
	User  User   `json:"user"`
	Posts []Post `json:"posts"`
}

// LikeState is the canonical state returned by the like toggle.
type LikeState struct {
	PostID       string   `json:"post_id"`
	IsLiked      bool     `json:"is_liked"`
	LikeCount    int64    `json:"like_count"`
	UpdatedLikes []string `json:"updated_likes"`
}

// CommentState is the canonical state returned by adding a comment.
type CommentState struct {
	PostID      string    `json:"post_id"`
	Comment     Comment   `json:"comment"`
	AllComments []Comment `json:"all_comments"`
}

// FollowState is the canonical state returned by the follow toggle.
type FollowState struct {
	TargetID             string `json:"target_id"`
	CallerID             string `json:"caller_id"`
	IsFollowing          bool   `json:"is_following"`
	TargetFollowerCount  int64  `json:"target_follower_count"`
	CallerFollowingCount int64  `json:"caller_following_count"`
}

// RegisterParams are the fields for account registration.
type RegisterParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginParams are the fields for login.
type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileParams are the optional profile fields. Nil means the field
// is not submitted; the avatar, if set, replaces the current one.
type UpdateProfileParams struct {
	Username *string
	Email    *string
	Bio      *string
	Avatar   *Upload
}
