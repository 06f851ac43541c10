package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/memegen/memegen-backend/internal/repository"
)

// ErrInvalidCredentials is returned for wrong email/password combinations.
// Deliberately the same error for both cases so callers can't probe accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering an already-registered email
var ErrEmailTaken = errors.New("email already registered")

// Service handles user registration and login
type Service struct {
	users repository.UserRepository
	jwt   *JWTService
}

// NewService creates a new auth service
func NewService(users repository.UserRepository, jwt *JWTService) *Service {
	return &Service{
		users: users,
		jwt:   jwt,
	}
}

// Register creates a new user account and returns an access token
func (s *Service) Register(ctx context.Context, email, username, password string) (*repository.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &repository.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// Login authenticates a user and returns an access token
func (s *Service) Login(ctx context.Context, email, password string) (*repository.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// ValidateToken validates a bearer token and returns the user ID
func (s *Service) ValidateToken(tokenString string) (uuid.UUID, *Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, nil, ErrInvalidToken
	}

	return userID, claims, nil
}
