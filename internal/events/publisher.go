package events

import (
	"context"

	pkglog "github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/pubsub"
)

// Publisher emits social events to the event bus. Publishing is best effort:
// a failed publish is logged and swallowed so that an event bus outage never
// fails the originating request.
type Publisher struct {
	bus pubsub.Publisher
}

// NewPublisher creates a new event publisher.
func NewPublisher(bus pubsub.Publisher) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) publish(ctx context.Context, channel, eventType, entityID string, payload interface{}) {
	event, err := pubsub.NewEvent(eventType, entityID, payload)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := p.bus.Publish(ctx, channel, event); err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).
			Str("event_type", eventType).
			Str("channel", channel).
			Msg("failed to publish event")
	}
}

// PostCreated publishes a post.created event.
func (p *Publisher) PostCreated(ctx context.Context, postID, authorID string) {
	p.publish(ctx, pubsub.PostChannel(postID), pubsub.EventPostCreated, postID,
		pubsub.PostCreatedPayload{PostID: postID, AuthorID: authorID})
}

// PostLiked publishes a post.liked event.
func (p *Publisher) PostLiked(ctx context.Context, postID, likerID string) {
	p.publish(ctx, pubsub.PostChannel(postID), pubsub.EventPostLiked, postID,
		pubsub.LikePayload{PostID: postID, LikerID: likerID})
}

// PostUnliked publishes a post.unliked event.
func (p *Publisher) PostUnliked(ctx context.Context, postID, likerID string) {
	p.publish(ctx, pubsub.PostChannel(postID), pubsub.EventPostUnliked, postID,
		pubsub.LikePayload{PostID: postID, LikerID: likerID})
}

// PostCommented publishes a post.commented event.
func (p *Publisher) PostCommented(ctx context.Context, postID, commenterID string) {
	p.publish(ctx, pubsub.PostChannel(postID), pubsub.EventPostCommented, postID,
		pubsub.CommentPayload{PostID: postID, CommenterID: commenterID})
}

// UserFollowed publishes a user.followed event on the followed user's channel.
func (p *Publisher) UserFollowed(ctx context.Context, followerID, followingID string) {
	p.publish(ctx, pubsub.UserChannel(followingID), pubsub.EventUserFollowed, followingID,
		pubsub.FollowPayload{FollowerID: followerID, FollowingID: followingID})
}

// UserUnfollowed publishes a user.unfollowed event on the unfollowed user's channel.
func (p *Publisher) UserUnfollowed(ctx context.Context, followerID, followingID string) {
	p.publish(ctx, pubsub.UserChannel(followingID), pubsub.EventUserUnfollowed, followingID,
		pubsub.FollowPayload{FollowerID: followerID, FollowingID: followingID})
}
