package pubsub

import "fmt"

// Channel naming conventions for social events.
//
// A channel is "social:{kind}:{entityID}" where kind is "post" or "user" and
// entityID identifies the post or user the event is about.
const (
	ChannelPostEvents = "social:post:%s"
	ChannelUserEvents = "social:user:%s"
)

// Event types for post channels.
const (
	EventPostCreated   = "post.created"
	EventPostLiked     = "post.liked"
	EventPostUnliked   = "post.unliked"
	EventPostCommented = "post.commented"
)

// Event types for user channels.
const (
	EventUserFollowed   = "user.followed"
	EventUserUnfollowed = "user.unfollowed"
)

// PostChannel returns the channel name for events about a post.
func PostChannel(postID string) string {
	return fmt.Sprintf(ChannelPostEvents, postID)
}

// UserChannel returns the channel name for events about a user.
func UserChannel(userID string) string {
	return fmt.Sprintf(ChannelUserEvents, userID)
}

// Event payloads.

// PostCreatedPayload is published when a new post is created.
type PostCreatedPayload struct {
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
}

// LikePayload is published when a post is liked or unliked.
type LikePayload struct {
	PostID  string `json:"post_id"`
	LikerID string `json:"liker_id"`
}

// CommentPayload is published when a comment is added to a post.
type CommentPayload struct {
	PostID      string `json:"post_id"`
	CommenterID string `json:"commenter_id"`
}

// FollowPayload is published when a follow edge is created or removed.
type FollowPayload struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}
