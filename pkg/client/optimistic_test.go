package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func seededClient(srvURL string) *Client {
	c := New(srvURL)
	c.SetSession(&Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour).Unix()})
	return c
}

func TestRelationOptimisticFlipAndReconcile(t *testing.T) {
	r := NewRelation(false, 5)

	if err := r.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !r.Active() || r.Count() != 6 {
		t.Errorf("after flip: active=%v count=%d, want true/6", r.Active(), r.Count())
	}
	if r.State() != StatePendingOptimistic {
		t.Errorf("state = %v, want pending", r.State())
	}

	// Server canonical count differs from the optimistic local one.
	r.reconcile(true, 8)
	if r.Count() != 8 {
		t.Errorf("count = %d, want canonical 8", r.Count())
	}
	if r.State() != StateSettled {
		t.Errorf("state = %v, want settled", r.State())
	}
}

func TestRelationRollbackRestoresSnapshot(t *testing.T) {
	r := NewRelation(true, 3)

	if err := r.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if r.Active() || r.Count() != 2 {
		t.Errorf("after flip: active=%v count=%d, want false/2", r.Active(), r.Count())
	}

	r.rollback()
	if !r.Active() || r.Count() != 3 {
		t.Errorf("after rollback: active=%v count=%d, want true/3", r.Active(), r.Count())
	}
	if r.State() != StateRolledBack {
		t.Errorf("state = %v, want rolled back", r.State())
	}
}

func TestRelationRejectsSecondMutationInFlight(t *testing.T) {
	r := NewRelation(false, 0)

	if err := r.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := r.begin(); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("err = %v, want ErrMutationInFlight", err)
	}

	// The rejected attempt must not disturb the pending view.
	if !r.Active() || r.Count() != 1 {
		t.Errorf("view disturbed: active=%v count=%d", r.Active(), r.Count())
	}

	r.reconcile(true, 1)
	if err := r.begin(); err != nil {
		t.Errorf("begin after settle: %v", err)
	}
}

func TestRelationCountNeverNegative(t *testing.T) {
	r := NewRelation(true, 0)

	if err := r.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("count = %d, must not go negative", r.Count())
	}
}

func TestLikeControlToggleReconciles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "like updated", LikeState{
			PostID: "p1", IsLiked: true, LikeCount: 7, UpdatedLikes: []string{"u1"},
		})
	}))
	defer srv.Close()

	post := &Post{ID: "p1", Likes: []string{"u2", "u3"}}
	lc := NewLikeControl(seededClient(srv.URL), post, "u1")

	if lc.Relation().Active() {
		t.Fatal("viewer has not liked yet")
	}

	state, err := lc.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !state.IsLiked {
		t.Error("canonical state should be liked")
	}
	if lc.Relation().Count() != 7 {
		t.Errorf("count = %d, want canonical 7", lc.Relation().Count())
	}
	if lc.Relation().State() != StateSettled {
		t.Errorf("state = %v, want settled", lc.Relation().State())
	}
}

func TestLikeControlRollsBackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, "boom", nil)
	}))
	defer srv.Close()

	post := &Post{ID: "p1", Likes: []string{"u1", "u2"}}
	lc := NewLikeControl(seededClient(srv.URL), post, "u1")

	if !lc.Relation().Active() || lc.Relation().Count() != 2 {
		t.Fatal("seed state wrong")
	}

	_, err := lc.Toggle(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !lc.Relation().Active() || lc.Relation().Count() != 2 {
		t.Errorf("view not restored: active=%v count=%d", lc.Relation().Active(), lc.Relation().Count())
	}
	if lc.Relation().State() != StateRolledBack {
		t.Errorf("state = %v, want rolled back", lc.Relation().State())
	}

	// A rolled-back relation accepts the next toggle.
	if err := lc.Relation().begin(); err != nil {
		t.Errorf("begin after rollback: %v", err)
	}
}

func TestFollowControlToggleReconciles(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		writeEnvelope(w, http.StatusOK, true, "follow updated", FollowState{
			TargetID: "u2", CallerID: "u1", IsFollowing: true, TargetFollowerCount: 10,
		})
	}))
	defer srv.Close()

	target := &User{ID: "u2", Followers: []string{"u3"}}
	fc := NewFollowControl(seededClient(srv.URL), target, "u1")

	state, err := fc.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !state.IsFollowing || fc.Relation().Count() != 10 {
		t.Errorf("state = %+v count = %d", state, fc.Relation().Count())
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestFollowControlSeedsFromFollowerSet(t *testing.T) {
	target := &User{ID: "u2", Followers: []string{"u1", "u3"}}
	fc := NewFollowControl(New("http://example.invalid"), target, "u1")

	if !fc.Relation().Active() {
		t.Error("viewer is in the follower set; relation must start active")
	}
	if fc.Relation().Count() != 2 {
		t.Errorf("count = %d, want 2", fc.Relation().Count())
	}
}

func TestLikeStateJSONRoundTrip(t *testing.T) {
	// The control consumes exactly what the server handler produces.
	raw := `{"post_id":"p1","is_liked":true,"like_count":2,"updated_likes":["a","b"]}`
	var state LikeState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if state.PostID != "p1" || state.LikeCount != 2 || len(state.UpdatedLikes) != 2 {
		t.Errorf("state = %+v", state)
	}
}
