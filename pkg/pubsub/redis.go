package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// eventBufferSize bounds the per-subscription delivery channel. Counter
// projections tolerate a skipped event, so a full buffer drops rather
// than blocks the reader goroutine.
const eventBufferSize = 100

// RedisPubSub carries social events over Redis channels. It is the default
// driver for single-node deployments.
type RedisPubSub struct {
	client *redis.Client

	mu   sync.RWMutex
	subs map[string]*redis.PubSub
}

// NewRedisPubSub connects to Redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client: client,
		subs:   make(map[string]*redis.PubSub),
	}, nil
}

// Publish sends an event to a single channel, such as the per-post or
// per-user channels built by PostChannel and UserChannel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe delivers events published to one exact channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return r.subscribe(ctx, r.client.Subscribe(ctx, channel), channel)
}

// SubscribePattern delivers events from every channel matching a glob
// pattern. The counter projector uses this to watch all posts and users.
func (r *RedisPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	return r.subscribe(ctx, r.client.PSubscribe(ctx, pattern), pattern)
}

func (r *RedisPubSub) subscribe(ctx context.Context, sub *redis.PubSub, key string) (<-chan *Event, error) {
	r.mu.Lock()
	r.subs[key] = sub
	r.mu.Unlock()

	eventCh := make(chan *Event, eventBufferSize)
	go r.forwardEvents(ctx, sub, eventCh)
	return eventCh, nil
}

// Unsubscribe closes the subscription registered under channel, if any.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[channel]; ok {
		if err := sub.Close(); err != nil {
			return err
		}
		delete(r.subs, channel)
	}

	return nil
}

// Close closes every open subscription and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		sub.Close()
	}
	r.subs = make(map[string]*redis.PubSub)

	return r.client.Close()
}

// forwardEvents decodes raw Redis messages into Events until the context is
// cancelled or the subscription closes. Malformed payloads are skipped.
func (r *RedisPubSub) forwardEvents(ctx context.Context, sub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				// Buffer full, drop.
			}
		}
	}
}
