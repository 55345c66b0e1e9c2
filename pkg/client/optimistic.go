package client

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrMutationInFlight is returned when a toggle is requested while a
	// previous toggle on the same relation is still being reconciled.
	ErrMutationInFlight = errors.New("mutation already in flight")
)

// RelationState is the lifecycle state of an optimistically updated relation.
type RelationState int

const (
	// StateSettled means the local view matches the last canonical state.
	StateSettled RelationState = iota
	// StatePendingOptimistic means the local view was flipped ahead of the
	// server and the request has not completed yet.
	StatePendingOptimistic
	// StateReconciling means the server responded and the canonical state is
	// being applied over the optimistic one.
	StateReconciling
	// StateRolledBack means the request failed and the local view was
	// restored from the pre-flip snapshot.
	StateRolledBack
)

// relationSnapshot preserves the local view before an optimistic flip.
type relationSnapshot struct {
	active bool
	count  int64
}

// Relation tracks one boolean relation (a like, a follow) between the viewer
// and an entity, plus the entity's counter. It applies flips optimistically
// and reconciles against server-canonical results, rolling back on failure.
// At most one mutation may be in flight at a time.
type Relation struct {
	mu       sync.Mutex
	active   bool
	count    int64
	state    RelationState
	snapshot relationSnapshot
	inflight bool
}

// NewRelation creates a relation seeded with known canonical state.
func NewRelation(active bool, count int64) *Relation {
	return &Relation{active: active, count: count, state: StateSettled}
}

// Active returns the current local view of the relation.
func (r *Relation) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Count returns the current local view of the counter.
func (r *Relation) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// State returns the relation's lifecycle state.
func (r *Relation) State() RelationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// begin snapshots the current view and applies the optimistic flip. It fails
// without touching the view when another mutation is still in flight.
func (r *Relation) begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight {
		return ErrMutationInFlight
	}
	r.inflight = true
	r.snapshot = relationSnapshot{active: r.active, count: r.count}

	if r.active {
		r.active = false
		if r.count > 0 {
			r.count--
		}
	} else {
		r.active = true
		r.count++
	}
	r.state = StatePendingOptimistic
	return nil
}

// reconcile replaces the optimistic view with the server-canonical one.
func (r *Relation) reconcile(active bool, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateReconciling
	r.active = active
	r.count = count
	r.state = StateSettled
	r.inflight = false
}

// rollback restores the pre-flip snapshot after a failed request.
func (r *Relation) rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = r.snapshot.active
	r.count = r.snapshot.count
	r.state = StateRolledBack
	r.inflight = false
}

// LikeControl drives optimistic like toggles for one post.
type LikeControl struct {
	client   *Client
	postID   string
	relation *Relation
}

// NewLikeControl creates a control seeded from a fetched post and the
// viewer's user ID.
func NewLikeControl(c *Client, post *Post, viewerID string) *LikeControl {
	liked := false
	for _, id := range post.Likes {
		if id == viewerID {
			liked = true
			break
		}
	}
	return &LikeControl{
		client:   c,
		postID:   post.ID,
		relation: NewRelation(liked, int64(len(post.Likes))),
	}
}

// Relation exposes the underlying relation for rendering.
func (lc *LikeControl) Relation() *Relation { return lc.relation }

// Toggle flips the like optimistically, sends the request and reconciles the
// local view with the canonical result. On failure the pre-toggle view is
// restored and the error returned.
func (lc *LikeControl) Toggle(ctx context.Context) (*LikeState, error) {
	if err := lc.relation.begin(); err != nil {
		return nil, err
	}

	state, err := lc.client.ToggleLike(ctx, lc.postID)
	if err != nil {
		lc.relation.rollback()
		return nil, err
	}

	lc.relation.reconcile(state.IsLiked, state.LikeCount)
	return state, nil
}

// FollowControl drives optimistic follow toggles toward one user.
type FollowControl struct {
	client   *Client
	targetID string
	relation *Relation
}

// NewFollowControl creates a control seeded from a fetched profile and the
// viewer's user ID.
func NewFollowControl(c *Client, target *User, viewerID string) *FollowControl {
	following := false
	for _, id := range target.Followers {
		if id == viewerID {
			following = true
			break
		}
	}
	return &FollowControl{
		client:   c,
		targetID: target.ID,
		relation: NewRelation(following, int64(len(target.Followers))),
	}
}

// Relation exposes the underlying relation for rendering.
func (fc *FollowControl) Relation() *Relation { return fc.relation }

// Toggle flips the follow optimistically, sends the request and reconciles
// the local view with the canonical result. On failure the pre-toggle view
// is restored and the error returned.
func (fc *FollowControl) Toggle(ctx context.Context) (*FollowState, error) {
	if err := fc.relation.begin(); err != nil {
		return nil, err
	}

	state, err := fc.client.ToggleFollow(ctx, fc.targetID)
	if err != nil {
		fc.relation.rollback()
		return nil, err
	}

	fc.relation.reconcile(state.IsFollowing, state.TargetFollowerCount)
	return state, nil
}
