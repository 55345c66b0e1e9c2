package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/events"
	"github.com/nitishkumar124/vekonnect/internal/repository"
	"github.com/nitishkumar124/vekonnect/pkg/pubsub"
)

// statefulPostRepo backs the post repo mock with real like and comment state
// so toggles observe their own writes.
func statefulPostRepo(posts map[string]*domain.Post) (*mockPostRepo, map[string][]string, *[]domain.Comment) {
	likes := make(map[string][]string)
	comments := []domain.Comment{}

	repo := &mockPostRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Post, error) {
			if p, ok := posts[id]; ok {
				return p, nil
			}
			return nil, repository.ErrPostNotFound
		},
		AddLikeFunc: func(ctx context.Context, postID, userID string) error {
			for _, id := range likes[postID] {
				if id == userID {
					return repository.ErrAlreadyLiked
				}
			}
			likes[postID] = append(likes[postID], userID)
			return nil
		},
		RemoveLikeFunc: func(ctx context.Context, postID, userID string) error {
			for i, id := range likes[postID] {
				if id == userID {
					likes[postID] = append(likes[postID][:i], likes[postID][i+1:]...)
					return nil
				}
			}
			return repository.ErrNotLiked
		},
		LikerIDsFunc: func(ctx context.Context, postID string) ([]string, error) {
			out := make([]string, len(likes[postID]))
			copy(out, likes[postID])
			return out, nil
		},
		AddCommentFunc: func(ctx context.Context, comment *domain.Comment) error {
			comment.ID = "c" + strings.Repeat("x", len(comments)+1)
			comment.CreatedAt = time.Now()
			comments = append(comments, *comment)
			return nil
		},
		ListCommentsFunc: func(ctx context.Context, postID string) ([]domain.Comment, error) {
			out := []domain.Comment{}
			for _, c := range comments {
				if c.PostID == postID {
					out = append(out, c)
				}
			}
			return out, nil
		},
	}
	return repo, likes, &comments
}

func fixedUserRepo(users map[string]*domain.User) *mockUserRepo {
	return &mockUserRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return nil, repository.ErrUserNotFound
		},
		GetByIDsFunc: func(ctx context.Context, ids []string) (map[string]*domain.User, error) {
			out := make(map[string]*domain.User)
			for _, id := range ids {
				if u, ok := users[id]; ok {
					out[id] = u
				}
			}
			return out, nil
		},
	}
}

func TestToggleLikeAddsThenRemoves(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1", UserID: "u2"}}
	postRepo, _, _ := statefulPostRepo(posts)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1", Username: "alice"}})
	rec := &recordingPublisher{}
	cacheMem := newMemCounterCache()
	svc := NewPostService(postRepo, users, cacheMem, newMemStorage(), events.NewPublisher(rec))

	first, err := svc.ToggleLike(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !first.IsLiked || first.LikeCount != 1 {
		t.Fatalf("first toggle = %+v, want liked with count 1", first)
	}
	if first.UpdatedLikes[0] != "u1" {
		t.Errorf("like set = %v, want [u1]", first.UpdatedLikes)
	}

	second, err := svc.ToggleLike(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.IsLiked || second.LikeCount != 0 {
		t.Fatalf("second toggle = %+v, want unliked with count 0", second)
	}
	if len(second.UpdatedLikes) != 0 {
		t.Errorf("like set = %v, want empty", second.UpdatedLikes)
	}

	types := rec.eventTypes()
	if len(types) != 2 || types[0] != pubsub.EventPostLiked || types[1] != pubsub.EventPostUnliked {
		t.Errorf("events = %v, want [post.liked post.unliked]", types)
	}

	if count, ok, _ := cacheMem.GetLikeCount(context.Background(), "p1"); !ok || count != 0 {
		t.Errorf("cached count = %d ok=%v, want 0 after round trip", count, ok)
	}
}

func TestToggleLikeRetainsOtherLikers(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1", UserID: "u3"}}
	postRepo, likes, _ := statefulPostRepo(posts)
	likes["p1"] = []string{"u1", "u2"}
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	result, err := svc.ToggleLike(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if result.IsLiked {
		t.Error("caller was already a liker, toggle must unlike")
	}
	if result.LikeCount != 1 {
		t.Errorf("count = %d, want 1", result.LikeCount)
	}
	if len(result.UpdatedLikes) != 1 || result.UpdatedLikes[0] != "u2" {
		t.Errorf("like set = %v, want the other liker [u2] retained", result.UpdatedLikes)
	}
}

func TestToggleLikeLostRaceConvergesToLiked(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1"}}
	postRepo, likes, _ := statefulPostRepo(posts)
	// A concurrent writer inserts the like between the read and the write.
	inner := postRepo.AddLikeFunc
	postRepo.AddLikeFunc = func(ctx context.Context, postID, userID string) error {
		likes[postID] = append(likes[postID], userID)
		return inner(ctx, postID, userID)
	}
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	result, err := svc.ToggleLike(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.IsLiked {
		t.Error("lost insert race should still settle on liked")
	}
	if result.LikeCount != 1 {
		t.Errorf("count = %d, want 1 despite both writers", result.LikeCount)
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	postRepo, _, _ := statefulPostRepo(map[string]*domain.Post{})
	users := fixedUserRepo(nil)
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	_, err := svc.ToggleLike(context.Background(), "u1", "missing")
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
}

func TestAddCommentSnapshotsUsername(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1"}}
	postRepo, _, _ := statefulPostRepo(posts)
	author := &domain.User{ID: "u1", Username: "alice"}
	users := fixedUserRepo(map[string]*domain.User{"u1": author})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	result, err := svc.AddComment(context.Background(), "u1", "p1", &domain.AddCommentRequest{Text: "nice shot"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if result.Comment.Username != "alice" {
		t.Errorf("comment username = %q, want snapshot alice", result.Comment.Username)
	}

	// A later rename must not rewrite the stored snapshot.
	author.Username = "alice_renamed"
	all, _ := postRepo.ListComments(context.Background(), "p1")
	if all[0].Username != "alice" {
		t.Errorf("stored username = %q, want alice", all[0].Username)
	}
}

func TestAddCommentRejectsBlankText(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1"}}
	postRepo, _, _ := statefulPostRepo(posts)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := svc.AddComment(context.Background(), "u1", "p1", &domain.AddCommentRequest{Text: text})
		if !errors.Is(err, ErrEmptyComment) {
			t.Errorf("text %q: err = %v, want ErrEmptyComment", text, err)
		}
	}
}

func TestAddCommentPreservesInsertionOrder(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1"}}
	postRepo, _, _ := statefulPostRepo(posts)
	users := fixedUserRepo(map[string]*domain.User{
		"u1": {ID: "u1", Username: "alice"},
		"u2": {ID: "u2", Username: "bob"},
	})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	texts := []string{"first", "second", "third"}
	var last *domain.CommentResult
	for i, text := range texts {
		userID := "u1"
		if i%2 == 1 {
			userID = "u2"
		}
		result, err := svc.AddComment(context.Background(), userID, "p1", &domain.AddCommentRequest{Text: text})
		if err != nil {
			t.Fatalf("AddComment %q: %v", text, err)
		}
		last = result
	}

	if len(last.AllComments) != 3 {
		t.Fatalf("got %d comments, want 3", len(last.AllComments))
	}
	for i, text := range texts {
		if last.AllComments[i].Text != text {
			t.Errorf("comment[%d] = %q, want %q", i, last.AllComments[i].Text, text)
		}
	}
}

func TestAddCommentStripsMarkup(t *testing.T) {
	posts := map[string]*domain.Post{"p1": {ID: "p1"}}
	postRepo, _, _ := statefulPostRepo(posts)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1", Username: "alice"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	result, err := svc.AddComment(context.Background(), "u1", "p1", &domain.AddCommentRequest{
		Text: `<script>alert(1)</script>hello`,
	})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if strings.Contains(result.Comment.Text, "<script>") {
		t.Errorf("markup survived sanitization: %q", result.Comment.Text)
	}
	if !strings.Contains(result.Comment.Text, "hello") {
		t.Errorf("legitimate text lost: %q", result.Comment.Text)
	}
}

func TestCreatePostStorageFailureIsUpstream(t *testing.T) {
	postRepo, _, _ := statefulPostRepo(map[string]*domain.Post{})
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1", Username: "alice"}})
	store := newMemStorage()
	store.writeErr = errors.New("connection refused")
	svc := NewPostService(postRepo, users, newMemCounterCache(), store, events.NewPublisher(&recordingPublisher{}))

	_, err := svc.CreatePost(context.Background(), "u1", &domain.CreatePostRequest{Caption: "hi"}, &UploadedFile{
		Reader:      strings.NewReader("img"),
		Size:        3,
		ContentType: "image/jpeg",
		Filename:    "a.jpg",
	})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestCreatePostRequiresImage(t *testing.T) {
	postRepo, _, _ := statefulPostRepo(map[string]*domain.Post{})
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	_, err := svc.CreatePost(context.Background(), "u1", &domain.CreatePostRequest{Caption: "hi"}, nil)
	if !errors.Is(err, ErrMissingImage) {
		t.Fatalf("err = %v, want ErrMissingImage", err)
	}
}

func TestCreatePostRejectsLongCaption(t *testing.T) {
	postRepo, _, _ := statefulPostRepo(map[string]*domain.Post{})
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	_, err := svc.CreatePost(context.Background(), "u1", &domain.CreatePostRequest{
		Caption: strings.Repeat("a", domain.MaxCaptionLength+1),
	}, &UploadedFile{Reader: strings.NewReader("img"), Size: 3, Filename: "a.jpg"})
	if !errors.Is(err, ErrCaptionTooLong) {
		t.Fatalf("err = %v, want ErrCaptionTooLong", err)
	}
}

func TestFeedPopulatesAuthorsLikesAndComments(t *testing.T) {
	now := time.Now()
	feedPosts := []domain.Post{
		{ID: "p2", UserID: "u2", Caption: "newer", CreatedAt: now},
		{ID: "p1", UserID: "u1", Caption: "older", CreatedAt: now.Add(-time.Hour)},
	}
	postRepo := &mockPostRepo{
		ListRecentFunc: func(ctx context.Context, limit int) ([]domain.Post, error) {
			return feedPosts, nil
		},
		BatchLikerIDsFunc: func(ctx context.Context, postIDs []string) (map[string][]string, error) {
			return map[string][]string{"p1": {"u2"}, "p2": {}}, nil
		},
		BatchListCommentsFunc: func(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
			return map[string][]domain.Comment{
				"p1": {{ID: "c1", PostID: "p1", Username: "bob", Text: "hi"}},
				"p2": {},
			}, nil
		},
	}
	users := fixedUserRepo(map[string]*domain.User{
		"u1": {ID: "u1", Username: "alice", AvatarURL: "/a.png"},
		"u2": {ID: "u2", Username: "bob"},
	})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	feed, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("got %d posts, want 2", len(feed))
	}
	if feed[0].ID != "p2" {
		t.Errorf("feed[0] = %s, want newest first", feed[0].ID)
	}
	if feed[0].Author.Username != "bob" {
		t.Errorf("feed[0] author = %q, want bob", feed[0].Author.Username)
	}
	if len(feed[1].Likes) != 1 || feed[1].Likes[0] != "u2" {
		t.Errorf("feed[1] likes = %v, want [u2]", feed[1].Likes)
	}
	if len(feed[1].Comments) != 1 || feed[1].Comments[0].Username != "bob" {
		t.Errorf("feed[1] comments = %+v, want bob's comment", feed[1].Comments)
	}
	if feed[0].Likes == nil || feed[0].Comments == nil {
		t.Error("empty like and comment sets must be non-nil")
	}
}

// feedRepo builds a post repo mock serving a fixed feed page with the given
// like sets and no comments.
func feedRepo(posts []domain.Post, likes map[string][]string) *mockPostRepo {
	return &mockPostRepo{
		ListRecentFunc: func(ctx context.Context, limit int) ([]domain.Post, error) {
			return posts, nil
		},
		BatchLikerIDsFunc: func(ctx context.Context, postIDs []string) (map[string][]string, error) {
			return likes, nil
		},
		BatchListCommentsFunc: func(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
			out := make(map[string][]domain.Comment, len(postIDs))
			for _, id := range postIDs {
				out[id] = []domain.Comment{}
			}
			return out, nil
		},
	}
}

func TestFeedServesCachedLikeCounts(t *testing.T) {
	postRepo := feedRepo(
		[]domain.Post{{ID: "p1", UserID: "u1"}},
		map[string][]string{"p1": {"u2"}},
	)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1", Username: "alice"}})
	cacheMem := newMemCounterCache()
	// The warm cache fronts the like set even when the two disagree.
	if err := cacheMem.SetLikeCount(context.Background(), "p1", 7); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	svc := NewPostService(postRepo, users, cacheMem, newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	feed, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if feed[0].LikeCount != 7 {
		t.Errorf("like count = %d, want cached 7", feed[0].LikeCount)
	}
	if len(feed[0].Likes) != 1 || feed[0].Likes[0] != "u2" {
		t.Errorf("like set = %v, want authoritative [u2]", feed[0].Likes)
	}
}

func TestFeedRepopulatesLikeCountOnMiss(t *testing.T) {
	postRepo := feedRepo(
		[]domain.Post{{ID: "p1", UserID: "u1"}},
		map[string][]string{"p1": {"u2", "u3"}},
	)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	cacheMem := newMemCounterCache()
	svc := NewPostService(postRepo, users, cacheMem, newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	feed, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if feed[0].LikeCount != 2 {
		t.Errorf("like count = %d, want 2 from the like set", feed[0].LikeCount)
	}
	if count, ok, _ := cacheMem.GetLikeCount(context.Background(), "p1"); !ok || count != 2 {
		t.Errorf("cached count = %d ok=%v, want the miss repopulated with 2", count, ok)
	}
}

func TestFeedResolvesImageURLFromKey(t *testing.T) {
	postRepo := feedRepo(
		[]domain.Post{{
			ID:       "p1",
			UserID:   "u1",
			ImageKey: "posts/k1.jpg",
			ImageURL: "https://cdn.example/expired-presign",
		}},
		map[string][]string{"p1": {}},
	)
	users := fixedUserRepo(map[string]*domain.User{"u1": {ID: "u1"}})
	svc := NewPostService(postRepo, users, newMemCounterCache(), newMemStorage(), events.NewPublisher(&recordingPublisher{}))

	feed, err := svc.Feed(context.Background())
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	// The stored URL is stale by construction; the key must be re-resolved.
	if feed[0].ImageURL != "/posts/k1.jpg" {
		t.Errorf("image url = %q, want resolved /posts/k1.jpg", feed[0].ImageURL)
	}
}
