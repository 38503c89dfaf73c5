package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SergeiKhy/geolink/internal/auth"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AuthService registers users and issues bearer tokens.
type AuthService interface {
	SignUp(ctx context.Context, input *models.SignUpInput) (*models.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthResult, error)
	// Authenticate resolves a bearer token to an existing user.
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cost   int
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager) AuthService {
	return &authService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *authService) SignUp(ctx context.Context, input *models.SignUpInput) (*models.AuthResult, error) {
	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*models.AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) issue(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
