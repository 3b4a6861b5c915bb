package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
	"github.com/worksafe/worksafe-backend/pkg/session"
)

// LoginResult carries the session token issued on a successful login
type LoginResult struct {
	User    *repository.User
	Token   string
	Expires time.Time
}

// AuthService handles login and account creation
type AuthService struct {
	users    *repository.UserRepository
	sessions *session.Manager
	logger   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, sessions *session.Manager, log *logger.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		logger:   log,
	}
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errors.InvalidCredentials()
	}
	if !user.IsActive {
		return nil, errors.Forbidden("account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.InvalidCredentials()
	}

	token, expires, err := s.sessions.Issue(&session.UserInfo{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.FullName(),
		Role:  user.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, user.ID, ipAddress, userAgent); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login")
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("user logged in")

	return &LoginResult{User: user, Token: token, Expires: expires}, nil
}

// Register creates a new user account with a hashed password
func (s *AuthService) Register(ctx context.Context, user *repository.User, password string) error {
	if len(password) < 8 {
		return errors.Validation(map[string]string{
			"password": "must be at least 8 characters",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("user registered")

	return nil
}

// GetUser returns a user by ID
func (s *AuthService) GetUser(ctx context.Context, id string) (*repository.User, error) {
	return s.users.GetByID(ctx, id)
}
