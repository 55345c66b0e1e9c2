package domain

import (
	"time"
)

// MaxCaptionLength is the maximum accepted caption length in characters.
const MaxCaptionLength = 2200

// Post represents a post entity.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	ImageKey  string    `json:"-"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a single comment on a post. Username is the author's
// display name snapshotted at write time; later renames do not rewrite it.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthorSummary is the populated author info attached to feed posts.
type AuthorSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// PostResponse represents a post in API responses, with populated author,
// the full like set and the ordered comment sequence. LikeCount is served
// from the counter cache when warm; the like set is always authoritative.
type PostResponse struct {
	ID        string        `json:"id"`
	Author    AuthorSummary `json:"author"`
	ImageURL  string        `json:"image_url"`
	Caption   string        `json:"caption"`
	Likes     []string      `json:"likes"`
	LikeCount int64         `json:"like_count"`
	Comments  []Comment     `json:"comments"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreatePostRequest carries the multipart post creation fields. The image
// itself arrives as a file part and is handled separately.
type CreatePostRequest struct {
	Caption string
}

// AddCommentRequest represents a comment creation request.
type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// LikeResult is the canonical state returned by the like toggle.
type LikeResult struct {
	PostID       string   `json:"post_id"`
	IsLiked      bool     `json:"is_liked"`
	LikeCount    int64    `json:"like_count"`
	UpdatedLikes []string `json:"updated_likes"`
}

// CommentResult returns the new comment plus the full resulting sequence so
// the client can replace its optimistic insert wholesale.
type CommentResult struct {
	PostID      string    `json:"post_id"`
	Comment     Comment   `json:"comment"`
	AllComments []Comment `json:"all_comments"`
}
