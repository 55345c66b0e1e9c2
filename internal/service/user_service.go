package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/nitishkumar124/vekonnect/internal/audit"
	"github.com/nitishkumar124/vekonnect/internal/cache"
	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/events"
	"github.com/nitishkumar124/vekonnect/internal/repository"
	"github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/storage"
)

// avatarURLExpiry bounds presigned avatar URLs on S3-backed storage.
const avatarURLExpiry = 24 * time.Hour

// userServiceImpl implements UserService.
type userServiceImpl struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	follows  repository.FollowRepository
	counters cache.CounterCache
	store    storage.Storage
	events   *events.Publisher
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	follows repository.FollowRepository,
	counters cache.CounterCache,
	store storage.Storage,
	publisher *events.Publisher,
) UserService {
	return &userServiceImpl{
		users:    users,
		posts:    posts,
		follows:  follows,
		counters: counters,
		store:    store,
		events:   publisher,
	}
}

// GetProfile returns a user with their follow edges and posts.
func (s *userServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.ProfileResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to load user")
		return nil, err
	}

	summary, err := s.summaryWithEdges(ctx, user)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list user posts")
		return nil, err
	}

	responses, err := buildPostResponses(ctx, posts, s.users, s.posts, s.counters, s.store)
	if err != nil {
		return nil, err
	}

	return &domain.ProfileResponse{
		User:  summary,
		Posts: responses,
	}, nil
}

// UpdateProfile applies the submitted fields to the caller's profile.
// Nil fields are left untouched; the avatar, if present, replaces the old one.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest, avatar *UploadedFile) (*domain.UserSummary, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Username != nil {
		username := sanitizeText(*req.Username)
		if len([]rune(username)) < domain.MinUsernameLength {
			return nil, ErrInvalidUsername
		}
		if username != user.Username {
			taken, err := s.users.UsernameTaken(ctx, username, userID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameExists
			}
			user.Username = username
		}
	}

	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.users.EmailTaken(ctx, *req.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailExists
		}
		user.Email = *req.Email
	}

	if req.Bio != nil {
		bio := sanitizeText(*req.Bio)
		if len([]rune(bio)) > domain.MaxBioLength {
			return nil, ErrBioTooLong
		}
		user.Bio = bio
	}

	oldAvatarKey := ""
	if avatar != nil {
		key := fmt.Sprintf("avatars/%s%s", uuid.New().String(), path.Ext(avatar.Filename))
		if err := s.store.Write(ctx, key, avatar.Reader, avatar.Size, avatar.ContentType); err != nil {
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to store avatar")
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		url, err := s.store.GetURL(ctx, key, avatarURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		oldAvatarKey = user.AvatarKey
		user.AvatarKey = key
		user.AvatarURL = url
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to update user")
		return nil, err
	}

	if oldAvatarKey != "" {
		// Best effort; an orphaned object is harmless.
		if err := s.store.Delete(ctx, oldAvatarKey); err != nil {
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to delete old avatar")
		}
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")

	summary, err := s.summaryWithEdges(ctx, user)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ToggleFollow flips the caller's follow edge toward targetID. Races with a
// concurrent toggle surface as unique-index or missing-row errors from the
// repository; both converge on the state the winner produced.
func (s *userServiceImpl) ToggleFollow(ctx context.Context, callerID, targetID string) (*domain.FollowResult, error) {
	l := log.Ctx(ctx)

	if callerID == targetID {
		return nil, ErrSelfFollow
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	following, err := s.follows.IsFollowing(ctx, callerID, targetID)
	if err != nil {
		return nil, err
	}

	if following {
		err = s.follows.Unfollow(ctx, callerID, targetID)
		if err != nil && !errors.Is(err, repository.ErrFollowNotFound) {
			l.Error().Err(err).Str(log.FieldUserID, callerID).Str(log.FieldTargetID, targetID).Msg("failed to unfollow")
			return nil, err
		}
		following = false
		if err == nil {
			s.events.UserUnfollowed(ctx, callerID, targetID)
			audit.LogWithTarget(ctx, audit.ActionUnfollow, callerID, targetID, "user unfollowed")
		}
	} else {
		err = s.follows.Follow(ctx, callerID, targetID)
		if err != nil && !errors.Is(err, repository.ErrAlreadyFollowing) {
			l.Error().Err(err).Str(log.FieldUserID, callerID).Str(log.FieldTargetID, targetID).Msg("failed to follow")
			return nil, err
		}
		following = true
		if err == nil {
			s.events.UserFollowed(ctx, callerID, targetID)
			audit.LogWithTarget(ctx, audit.ActionFollow, callerID, targetID, "user followed")
		}
	}

	followerCount, err := s.follows.FollowersCount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	followingCount, err := s.follows.FollowingCount(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.counters.SetFollowerCount(ctx, targetID, followerCount); err != nil {
		l.Warn().Err(err).Str(log.FieldTargetID, targetID).Msg("failed to refresh follower count cache")
	}

	return &domain.FollowResult{
		TargetID:             targetID,
		CallerID:             callerID,
		IsFollowing:          following,
		TargetFollowerCount:  followerCount,
		CallerFollowingCount: followingCount,
	}, nil
}

// summaryWithEdges builds a UserSummary with follower and following ID sets.
// The avatar URL is resolved from the stored key at read time; the follower
// count comes from the counter cache, falling back to the edge set and
// repopulating the cache on a miss.
func (s *userServiceImpl) summaryWithEdges(ctx context.Context, user *domain.User) (domain.UserSummary, error) {
	l := log.Ctx(ctx)
	summary := user.ToSummary()

	if user.AvatarKey != "" {
		if url, err := s.store.GetURL(ctx, user.AvatarKey, avatarURLExpiry); err == nil {
			summary.AvatarURL = url
		} else {
			l.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to resolve avatar url")
		}
	}

	followers, err := s.follows.FollowerIDs(ctx, user.ID)
	if err != nil {
		return summary, err
	}
	following, err := s.follows.FollowingIDs(ctx, user.ID)
	if err != nil {
		return summary, err
	}

	summary.Followers = followers
	summary.Following = following

	count, hit, err := s.counters.GetFollowerCount(ctx, user.ID)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("follower count cache read failed")
	}
	if err != nil || !hit {
		count = int64(len(followers))
		if err == nil {
			if setErr := s.counters.SetFollowerCount(ctx, user.ID, count); setErr != nil {
				l.Warn().Err(setErr).Str(log.FieldUserID, user.ID).Msg("failed to repopulate follower count cache")
			}
		}
	}
	summary.FollowerCount = count
	summary.FollowingCount = int64(len(following))
	return summary, nil
}

var _ UserService = (*userServiceImpl)(nil)
