package service

import (
	"context"
	"errors"
	"strings"

	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/repository"
)

type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// UpdateUser applies the non-empty fields of input.
	UpdateUser(ctx context.Context, id int64, input *models.UpdateUserInput) (*models.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, input *models.UpdateUserInput) (*models.User, error) {
	name := trimmed(input.Name)
	avatar := trimmed(input.Avatar)
	if name == "" && avatar == "" {
		return nil, ErrNothingToUpdate
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if avatar != "" {
		user.Avatar = avatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
