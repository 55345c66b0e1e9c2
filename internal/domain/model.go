package domain

import (
	"time"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	AvatarURL    string    `gorm:"type:text"`
	AvatarKey    string    `gorm:"type:varchar(255)"`
	Bio          string    `gorm:"type:varchar(150)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		AvatarURL:    m.AvatarURL,
		AvatarKey:    m.AvatarKey,
		Bio:          m.Bio,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		AvatarURL:    u.AvatarURL,
		AvatarKey:    u.AvatarKey,
		Bio:          u.Bio,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// PostModel is the GORM model for the posts table.
type PostModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	ImageURL  string    `gorm:"type:text;not null"`
	ImageKey  string    `gorm:"type:varchar(255)"`
	Caption   string    `gorm:"type:varchar(2200)"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (PostModel) TableName() string { return "posts" }

// LikeModel is the GORM model for the likes table. The composite unique index
// makes duplicate likes by the same user impossible at the storage level.
type LikeModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PostID    string    `gorm:"column:post_id;type:varchar(36);not null;uniqueIndex:idx_post_user"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_post_user"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (LikeModel) TableName() string { return "likes" }

// CommentModel is the GORM model for the comments table. Comments are
// append-only; the username is a snapshot taken at write time.
type CommentModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	PostID    string    `gorm:"column:post_id;type:varchar(36);index;not null"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null"`
	Username  string    `gorm:"type:varchar(50);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CommentModel) TableName() string { return "comments" }

// ToDomain converts CommentModel to domain Comment.
func (m *CommentModel) ToDomain() Comment {
	return Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

// FollowModel is the GORM model for the follows table. The follow edge is a
// single row, so follower/following membership can never diverge.
type FollowModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID  string    `gorm:"column:follower_id;type:varchar(36);not null;uniqueIndex:idx_follower_following"`
	FollowingID string    `gorm:"column:following_id;type:varchar(36);not null;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }
