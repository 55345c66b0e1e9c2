package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nitishkumar124/vekonnect/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM v1.25+ wraps these as gorm.ErrDuplicatedKey when error translation is on.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// Create creates a new post.
func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}

	model := domain.PostModel{
		ID:       post.ID,
		UserID:   post.UserID,
		ImageURL: post.ImageURL,
		ImageKey: post.ImageKey,
		Caption:  post.Caption,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}

	post.CreatedAt = model.CreatedAt
	return nil
}

// GetByID retrieves a post by ID.
func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var model domain.PostModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, result.Error
	}
	return postToDomain(&model), nil
}

// ListRecent returns posts ordered newest first. limit <= 0 means no limit.
func (r *GormPostRepository) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []domain.PostModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	return postsToDomain(models), nil
}

// ListByUser returns a user's posts ordered newest first.
func (r *GormPostRepository) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	var models []domain.PostModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return postsToDomain(models), nil
}

// AddLike inserts a (post, user) like row. Duplicate likes surface as
// ErrAlreadyLiked via the composite unique index.
func (r *GormPostRepository) AddLike(ctx context.Context, postID, userID string) error {
	model := domain.LikeModel{
		PostID: postID,
		UserID: userID,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyLiked
		}
		return err
	}
	return nil
}

// RemoveLike deletes the (post, user) like row.
func (r *GormPostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&domain.LikeModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotLiked
	}
	return nil
}

// LikerIDs returns the IDs of users who like the post, oldest like first.
func (r *GormPostRepository) LikerIDs(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.LikeModel{}).
		Where("post_id = ?", postID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// BatchLikerIDs returns the like set for each of the given posts.
func (r *GormPostRepository) BatchLikerIDs(ctx context.Context, postIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(postIDs))
	for _, id := range postIDs {
		result[id] = []string{}
	}

	if len(postIDs) == 0 {
		return result, nil
	}

	var models []domain.LikeModel
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	for _, m := range models {
		result[m.PostID] = append(result[m.PostID], m.UserID)
	}
	return result, nil
}

// AddComment appends a comment to a post.
func (r *GormPostRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}

	model := domain.CommentModel{
		ID:       comment.ID,
		PostID:   comment.PostID,
		UserID:   comment.UserID,
		Username: comment.Username,
		Text:     comment.Text,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}

	comment.CreatedAt = model.CreatedAt
	return nil
}

// ListComments returns a post's comments in insertion order.
func (r *GormPostRepository) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var models []domain.CommentModel
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(models))
	for i := range models {
		comments = append(comments, models[i].ToDomain())
	}
	return comments, nil
}

// BatchListComments returns the ordered comment sequence for each of the given posts.
func (r *GormPostRepository) BatchListComments(ctx context.Context, postIDs []string) (map[string][]domain.Comment, error) {
	result := make(map[string][]domain.Comment, len(postIDs))
	for _, id := range postIDs {
		result[id] = []domain.Comment{}
	}

	if len(postIDs) == 0 {
		return result, nil
	}

	var models []domain.CommentModel
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	for i := range models {
		m := &models[i]
		result[m.PostID] = append(result[m.PostID], m.ToDomain())
	}
	return result, nil
}

func postToDomain(m *domain.PostModel) *domain.Post {
	return &domain.Post{
		ID:        m.ID,
		UserID:    m.UserID,
		ImageURL:  m.ImageURL,
		ImageKey:  m.ImageKey,
		Caption:   m.Caption,
		CreatedAt: m.CreatedAt,
	}
}

func postsToDomain(models []domain.PostModel) []domain.Post {
	posts := make([]domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, *postToDomain(&models[i]))
	}
	return posts
}

var _ PostRepository = (*GormPostRepository)(nil)
