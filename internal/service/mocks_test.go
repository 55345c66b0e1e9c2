package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/pkg/pubsub"
)

// mockUserRepo implements repository.UserRepository with function fields.
type mockUserRepo struct {
	CreateFunc        func(ctx context.Context, user *domain.User) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.User, error)
	GetByIDsFunc      func(ctx context.Context, ids []string) (map[string]*domain.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*domain.User, error)
	EmailTakenFunc    func(ctx context.Context, email, excludeID string) (bool, error)
	UsernameTakenFunc func(ctx context.Context, username, excludeID string) (bool, error)
	UpdateFunc        func(ctx context.Context, user *domain.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.CreateFunc(ctx, user)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	return m.GetByIDsFunc(ctx, ids)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return m.EmailTakenFunc(ctx, email, excludeID)
}

func (m *mockUserRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return m.UsernameTakenFunc(ctx, username, excludeID)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.UpdateFunc(ctx, user)
}

// mockPostRepo implements repository.PostRepository with function fields.
type mockPostRepo struct {
	CreateFunc            func(ctx context.Context, post *domain.Post) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Post, error)
	ListRecentFunc        func(ctx context.Context, limit int) ([]domain.Post, error)
	ListByUserFunc        func(ctx context.Context, userID string) ([]domain.Post, error)
	AddLikeFunc           func(ctx context.Context, postID, userID string) error
	RemoveLikeFunc        func(ctx context.Context, postID, userID string) error
	LikerIDsFunc          func(ctx context.Context, postID string) ([]string, error)
	BatchLikerIDsFunc     func(ctx context.Context, postIDs []string) (map[string][]string, error)
	AddCommentFunc        func(ctx context.Context, comment *domain.Comment) error
	ListCommentsFunc      func(ctx context.Context, postID string) ([]domain.Comment, error)
	BatchListCommentsFunc func(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error)
}

func (m *mockPostRepo) Create(ctx context.Context, post *domain.Post) error {
	return m.CreateFunc(ctx, post)
}

func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockPostRepo) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	return m.ListRecentFunc(ctx, limit)
}

func (m *mockPostRepo) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockPostRepo) AddLike(ctx context.Context, postID, userID string) error {
	return m.AddLikeFunc(ctx, postID, userID)
}

func (m *mockPostRepo) RemoveLike(ctx context.Context, postID, userID string) error {
	return m.RemoveLikeFunc(ctx, postID, userID)
}

func (m *mockPostRepo) LikerIDs(ctx context.Context, postID string) ([]string, error) {
	return m.LikerIDsFunc(ctx, postID)
}

func (m *mockPostRepo) BatchLikerIDs(ctx context.Context, postIDs []string) (map[string][]string, error) {
	return m.BatchLikerIDsFunc(ctx, postIDs)
}

func (m *mockPostRepo) AddComment(ctx context.Context, comment *domain.Comment) error {
	return m.AddCommentFunc(ctx, comment)
}

func (m *mockPostRepo) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	return m.ListCommentsFunc(ctx, postID)
}

func (m *mockPostRepo) BatchListComments(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
	return m.BatchListCommentsFunc(ctx, postIDs)
}

// mockFollowRepo implements repository.FollowRepository with function fields.
type mockFollowRepo struct {
	FollowFunc         func(ctx context.Context, followerID, followingID string) error
	UnfollowFunc       func(ctx context.Context, followerID, followingID string) error
	IsFollowingFunc    func(ctx context.Context, followerID, followingID string) (bool, error)
	FollowerIDsFunc    func(ctx context.Context, userID string) ([]string, error)
	FollowingIDsFunc   func(ctx context.Context, userID string) ([]string, error)
	FollowersCountFunc func(ctx context.Context, userID string) (int64, error)
	FollowingCountFunc func(ctx context.Context, userID string) (int64, error)
}

func (m *mockFollowRepo) Follow(ctx context.Context, followerID, followingID string) error {
	return m.FollowFunc(ctx, followerID, followingID)
}

func (m *mockFollowRepo) Unfollow(ctx context.Context, followerID, followingID string) error {
	return m.UnfollowFunc(ctx, followerID, followingID)
}

func (m *mockFollowRepo) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	return m.IsFollowingFunc(ctx, followerID, followingID)
}

func (m *mockFollowRepo) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return m.FollowerIDsFunc(ctx, userID)
}

func (m *mockFollowRepo) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return m.FollowingIDsFunc(ctx, userID)
}

func (m *mockFollowRepo) FollowersCount(ctx context.Context, userID string) (int64, error) {
	return m.FollowersCountFunc(ctx, userID)
}

func (m *mockFollowRepo) FollowingCount(ctx context.Context, userID string) (int64, error) {
	return m.FollowingCountFunc(ctx, userID)
}

// memCounterCache is an in-memory cache.CounterCache for tests.
type memCounterCache struct {
	mu        sync.Mutex
	likes     map[string]int64
	followers map[string]int64
}

func newMemCounterCache() *memCounterCache {
	return &memCounterCache{
		likes:     make(map[string]int64),
		followers: make(map[string]int64),
	}
}

func (m *memCounterCache) GetLikeCount(ctx context.Context, postID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.likes[postID]
	return v, ok, nil
}

func (m *memCounterCache) SetLikeCount(ctx context.Context, postID string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[postID] = count
	return nil
}

func (m *memCounterCache) CondIncrLikeCount(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.likes[postID]; ok {
		m.likes[postID]++
	}
	return nil
}

func (m *memCounterCache) CondDecrLikeCount(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.likes[postID]; ok && v > 0 {
		m.likes[postID]--
	}
	return nil
}

func (m *memCounterCache) GetFollowerCount(ctx context.Context, userID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.followers[userID]
	return v, ok, nil
}

func (m *memCounterCache) SetFollowerCount(ctx context.Context, userID string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers[userID] = count
	return nil
}

func (m *memCounterCache) CondIncrFollowerCount(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.followers[userID]; ok {
		m.followers[userID]++
	}
	return nil
}

func (m *memCounterCache) CondDecrFollowerCount(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.followers[userID]; ok && v > 0 {
		m.followers[userID]--
	}
	return nil
}

func (m *memCounterCache) Close() error { return nil }

// memStorage is an in-memory storage.Storage for tests.
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, io.EOF
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "/" + key, nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
