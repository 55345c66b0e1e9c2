package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/nitishkumar124/vekonnect/internal/audit"
	"github.com/nitishkumar124/vekonnect/internal/domain"
	"github.com/nitishkumar124/vekonnect/internal/repository"
	"github.com/nitishkumar124/vekonnect/pkg/jwt"
	"github.com/nitishkumar124/vekonnect/pkg/log"
)

// authServiceImpl implements AuthService.
type authServiceImpl struct {
	users  repository.UserRepository
	tokens *jwt.Manager
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, tokens *jwt.Manager) AuthService {
	return &authServiceImpl{
		users:  users,
		tokens: tokens,
	}
}

// Register creates a new user account and returns a signed token.
func (s *authServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	// Markup and padding can collapse a username below the minimum even
	// when the raw input passed binding validation.
	username := sanitizeText(req.Username)
	if len([]rune(username)) < domain.MinUsernameLength {
		return nil, ErrInvalidUsername
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	user := &domain.User{
		Email:        req.Email,
		Username:     username,
		PasswordHash: string(hashedPassword),
		AvatarURL:    domain.DefaultAvatarURL,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		}
		l.Error().Err(err).Msg("failed to create user")
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token after register")
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, user.ID, "user registered")

	return &domain.AuthResponse{
		User:      user.ToSummary(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Login authenticates a user by email and password.
func (s *authServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same failure as a wrong password so login does not leak
			// which emails are registered.
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Email, "login failed: unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to look up user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.Log(ctx, audit.ActionLoginFailed, user.ID, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Username)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate token")
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")

	return &domain.AuthResponse{
		User:      user.ToSummary(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
