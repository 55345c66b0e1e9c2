package domain

import (
	"time"
)

// DefaultAvatarURL is assigned to newly registered users until they upload
// a profile picture.
const DefaultAvatarURL = "/static/default_avatar.png"

// MaxBioLength is the maximum accepted bio length in characters.
const MaxBioLength = 150

// MinUsernameLength is the minimum accepted username length in characters,
// measured after sanitization strips markup and surrounding whitespace.
const MinUsernameLength = 3

// User represents a user entity.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar_url"`
	AvatarKey    string    `json:"-"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the optional multipart profile fields.
// Nil pointer means "field not submitted"; a submitted empty bio clears it.
type UpdateProfileRequest struct {
	Username *string
	Email    *string
	Bio      *string
}

// UserSummary represents a user in API responses, including the follow edges
// the client needs for membership checks. FollowerCount is served from the
// counter cache when warm; the edge sets are always authoritative.
type UserSummary struct {
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

// ToSummary converts User to UserSummary without follow edges.
// The service layer populates Followers/Following from the follow repository.
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Followers: []string{},
		Following: []string{},
		CreatedAt: u.CreatedAt,
	}
}

// AuthResponse represents an authentication response with a bearer token.
type AuthResponse struct {
	User      UserSummary `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
}

// ProfileResponse is the payload for GET /users/:id: the user plus their posts.
type ProfileResponse struct {
	User  UserSummary    `json:"user"`
	Posts []PostResponse `json:"posts"`
}

// FollowResult is the canonical state returned by the follow toggle.
type FollowResult struct {
	TargetID             string `json:"target_id"`
	CallerID             string `json:"caller_id"`
	IsFollowing          bool   `json:"is_following"`
	TargetFollowerCount  int64  `json:"target_follower_count"`
	CallerFollowingCount int64  `json:"caller_following_count"`
}
