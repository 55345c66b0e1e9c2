package events

import (
	"context"
	"fmt"

	"github.com/nitishkumar124/vekonnect/internal/cache"
	pkglog "github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/pubsub"
)

// CounterProjector keeps cached like and follower counts in sync with the
// event stream. Increments are conditional: a count that is not already
// cached is left alone, so a projector restart can never seed a key with a
// partial value. The authoritative counts always live in the database.
type CounterProjector struct {
	bus    pubsub.Subscriber
	cache  cache.CounterCache
	doneCh chan struct{}
}

// NewCounterProjector creates a projector over the given subscriber and cache.
func NewCounterProjector(bus pubsub.Subscriber, counters cache.CounterCache) *CounterProjector {
	return &CounterProjector{
		bus:    bus,
		cache:  counters,
		doneCh: make(chan struct{}),
	}
}

// Start subscribes to post and user event channels and begins projecting.
func (cp *CounterProjector) Start(ctx context.Context) error {
	postCh, err := cp.bus.SubscribePattern(ctx, pubsub.PostChannel("*"))
	if err != nil {
		return fmt.Errorf("subscribe post events: %w", err)
	}
	userCh, err := cp.bus.SubscribePattern(ctx, pubsub.UserChannel("*"))
	if err != nil {
		return fmt.Errorf("subscribe user events: %w", err)
	}

	l := pkglog.L()
	l.Info().Msg("counter projector started")
	go cp.projectLoop(ctx, postCh, userCh)

	return nil
}

func (cp *CounterProjector) projectLoop(ctx context.Context, postCh, userCh <-chan *pubsub.Event) {
	l := pkglog.L()
	defer close(cp.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("counter projector shutting down")
			return
		case event, ok := <-postCh:
			if !ok {
				l.Info().Msg("post event channel closed")
				return
			}
			cp.processEvent(context.WithoutCancel(ctx), event)
		case event, ok := <-userCh:
			if !ok {
				l.Info().Msg("user event channel closed")
				return
			}
			cp.processEvent(context.WithoutCancel(ctx), event)
		}
	}
}

func (cp *CounterProjector) processEvent(ctx context.Context, event *pubsub.Event) {
	l := pkglog.L()

	var err error
	switch event.Type {
	case pubsub.EventPostLiked:
		err = cp.cache.CondIncrLikeCount(ctx, event.EntityID)
	case pubsub.EventPostUnliked:
		err = cp.cache.CondDecrLikeCount(ctx, event.EntityID)
	case pubsub.EventUserFollowed:
		err = cp.cache.CondIncrFollowerCount(ctx, event.EntityID)
	case pubsub.EventUserUnfollowed:
		err = cp.cache.CondDecrFollowerCount(ctx, event.EntityID)
	default:
		// post.created and post.commented do not affect cached counters.
		return
	}

	if err != nil {
		l.Error().Err(err).
			Str("event_type", event.Type).
			Str("entity_id", event.EntityID).
			Msg("failed to project counter event")
		return
	}

	l.Debug().
		Str("event_type", event.Type).
		Str("entity_id", event.EntityID).
		Msg("projected counter event")
}

// Done returns a channel closed when the projector loop exits.
func (cp *CounterProjector) Done() <-chan struct{} {
	return cp.doneCh
}
