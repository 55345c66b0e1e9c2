package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nitishkumar124/vekonnect/internal/audit"
	"github.com/nitishkumar124/vekonnect/internal/cache"
	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/events"
	"github.com/nitishkumar124/vekonnect/internal/repository"
	"github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/storage"
)

// feedLimit bounds the number of posts returned by the feed.
const feedLimit = 50

// imageURLExpiry bounds presigned image URLs on S3-backed storage.
const imageURLExpiry = 24 * time.Hour

// postServiceImpl implements PostService.
type postServiceImpl struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	counters cache.CounterCache
	store    storage.Storage
	events   *events.Publisher
}

// NewPostService creates a new post service.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	counters cache.CounterCache,
	store storage.Storage,
	publisher *events.Publisher,
) PostService {
	return &postServiceImpl{
		posts:    posts,
		users:    users,
		counters: counters,
		store:    store,
		events:   publisher,
	}
}

// Feed returns recent posts newest first, with authors, like sets and
// comment sequences populated.
func (s *postServiceImpl) Feed(ctx context.Context) ([]domain.PostResponse, error) {
	l := log.Ctx(ctx)

	posts, err := s.posts.ListRecent(ctx, feedLimit)
	if err != nil {
		l.Error().Err(err).Msg("failed to list recent posts")
		return nil, err
	}

	return buildPostResponses(ctx, posts, s.users, s.posts, s.counters, s.store)
}

// CreatePost stores the image, persists the post and publishes its creation.
func (s *postServiceImpl) CreatePost(ctx context.Context, userID string, req *domain.CreatePostRequest, image *UploadedFile) (*domain.PostResponse, error) {
	l := log.Ctx(ctx)

	if image == nil {
		return nil, ErrMissingImage
	}

	caption := sanitizeText(req.Caption)
	if len([]rune(caption)) > domain.MaxCaptionLength {
		return nil, ErrCaptionTooLong
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("posts/%s%s", uuid.New().String(), path.Ext(image.Filename))
	if err := s.store.Write(ctx, key, image.Reader, image.Size, image.ContentType); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to store post image")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	url, err := s.store.GetURL(ctx, key, imageURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	post := &domain.Post{
		UserID:   userID,
		ImageURL: url,
		ImageKey: key,
		Caption:  caption,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to create post")
		// The stored image is orphaned otherwise.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			l.Warn().Err(delErr).Msg("failed to clean up orphaned post image")
		}
		return nil, err
	}

	if err := s.counters.SetLikeCount(ctx, post.ID, 0); err != nil {
		l.Warn().Err(err).Str(log.FieldPostID, post.ID).Msg("failed to seed like count cache")
	}

	s.events.PostCreated(ctx, post.ID, userID)
	audit.LogWithTarget(ctx, audit.ActionCreatePost, userID, post.ID, "post created")

	return &domain.PostResponse{
		ID: post.ID,
		Author: domain.AuthorSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		},
		ImageURL:  post.ImageURL,
		Caption:   post.Caption,
		Likes:     []string{},
		LikeCount: 0,
		Comments:  []domain.Comment{},
		CreatedAt: post.CreatedAt,
	}, nil
}

// ToggleLike flips the caller's like on postID. Races with a concurrent
// toggle surface as unique-index or missing-row errors from the repository;
// both converge on the state the winner produced.
func (s *postServiceImpl) ToggleLike(ctx context.Context, userID, postID string) (*domain.LikeResult, error) {
	l := log.Ctx(ctx)

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	likers, err := s.posts.LikerIDs(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked := false
	for _, id := range likers {
		if id == userID {
			liked = true
			break
		}
	}

	if liked {
		err = s.posts.RemoveLike(ctx, postID, userID)
		if err != nil && !errors.Is(err, repository.ErrNotLiked) {
			l.Error().Err(err).Str(log.FieldUserID, userID).Str(log.FieldPostID, postID).Msg("failed to remove like")
			return nil, err
		}
		liked = false
		if err == nil {
			s.events.PostUnliked(ctx, postID, userID)
			audit.LogWithTarget(ctx, audit.ActionUnlike, userID, postID, "post unliked")
		}
	} else {
		err = s.posts.AddLike(ctx, postID, userID)
		if err != nil && !errors.Is(err, repository.ErrAlreadyLiked) {
			l.Error().Err(err).Str(log.FieldUserID, userID).Str(log.FieldPostID, postID).Msg("failed to add like")
			return nil, err
		}
		liked = true
		if err == nil {
			s.events.PostLiked(ctx, postID, userID)
			audit.LogWithTarget(ctx, audit.ActionLike, userID, postID, "post liked")
		}
	}

	updated, err := s.posts.LikerIDs(ctx, postID)
	if err != nil {
		return nil, err
	}

	count := int64(len(updated))
	if err := s.counters.SetLikeCount(ctx, postID, count); err != nil {
		l.Warn().Err(err).Str(log.FieldPostID, postID).Msg("failed to refresh like count cache")
	}

	return &domain.LikeResult{
		PostID:       postID,
		IsLiked:      liked,
		LikeCount:    count,
		UpdatedLikes: updated,
	}, nil
}

// AddComment appends a comment, snapshotting the author's current username.
func (s *postServiceImpl) AddComment(ctx context.Context, userID, postID string, req *domain.AddCommentRequest) (*domain.CommentResult, error) {
	l := log.Ctx(ctx)

	text := sanitizeText(req.Text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   postID,
		UserID:   userID,
		Username: author.Username,
		Text:     text,
	}
	if err := s.posts.AddComment(ctx, comment); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Str(log.FieldPostID, postID).Msg("failed to add comment")
		return nil, err
	}

	all, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.events.PostCommented(ctx, postID, userID)
	audit.LogWithTarget(ctx, audit.ActionComment, userID, postID, "comment added")

	return &domain.CommentResult{
		PostID:      postID,
		Comment:     *comment,
		AllComments: all,
	}, nil
}

// buildPostResponses populates authors, like sets and comment sequences for
// a page of posts using batch queries. Like counts come from the counter
// cache, falling back to the like set and repopulating the cache on a miss.
// Image and avatar URLs are resolved from their storage keys at read time;
// the URL persisted at creation is only a fallback, since presigned URLs
// expire.
func buildPostResponses(ctx context.Context, posts []domain.Post, users repository.UserRepository, postsRepo repository.PostRepository, counters cache.CounterCache, store storage.Storage) ([]domain.PostResponse, error) {
	responses := make([]domain.PostResponse, 0, len(posts))
	if len(posts) == 0 {
		return responses, nil
	}

	postIDs := make([]string, 0, len(posts))
	authorIDSet := make(map[string]struct{}, len(posts))
	for i := range posts {
		postIDs = append(postIDs, posts[i].ID)
		authorIDSet[posts[i].UserID] = struct{}{}
	}
	authorIDs := make([]string, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}

	var (
		authors  map[string]*domain.User
		likes    map[string][]string
		comments map[string][]domain.Comment
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authors, err = users.GetByIDs(gCtx, authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		likes, err = postsRepo.BatchLikerIDs(gCtx, postIDs)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = postsRepo.BatchListComments(gCtx, postIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l := log.Ctx(ctx)
	for i := range posts {
		p := &posts[i]

		imageURL := p.ImageURL
		if p.ImageKey != "" {
			if url, err := store.GetURL(ctx, p.ImageKey, imageURLExpiry); err == nil {
				imageURL = url
			} else {
				l.Warn().Err(err).Str(log.FieldPostID, p.ID).Msg("failed to resolve image url")
			}
		}

		count, hit, err := counters.GetLikeCount(ctx, p.ID)
		if err != nil {
			l.Warn().Err(err).Str(log.FieldPostID, p.ID).Msg("like count cache read failed")
		}
		if err != nil || !hit {
			count = int64(len(likes[p.ID]))
			if err == nil {
				if setErr := counters.SetLikeCount(ctx, p.ID, count); setErr != nil {
					l.Warn().Err(setErr).Str(log.FieldPostID, p.ID).Msg("failed to repopulate like count cache")
				}
			}
		}

		resp := domain.PostResponse{
			ID:        p.ID,
			ImageURL:  imageURL,
			Caption:   p.Caption,
			Likes:     likes[p.ID],
			LikeCount: count,
			Comments:  comments[p.ID],
			CreatedAt: p.CreatedAt,
		}
		if author, ok := authors[p.UserID]; ok {
			avatarURL := author.AvatarURL
			if author.AvatarKey != "" {
				if url, err := store.GetURL(ctx, author.AvatarKey, avatarURLExpiry); err == nil {
					avatarURL = url
				}
			}
			resp.Author = domain.AuthorSummary{
				ID:        author.ID,
				Username:  author.Username,
				AvatarURL: avatarURL,
			}
		} else {
			resp.Author = domain.AuthorSummary{ID: p.UserID}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

var _ PostService = (*postServiceImpl)(nil)
