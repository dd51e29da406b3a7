package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

type userService struct {
	userRepo domain.UserRepository
	clock    clock.Clock
}

// NewUserService creates a UserService for profile reads and edits.
func NewUserService(userRepo domain.UserRepository, c clock.Clock) domain.UserService {
	return &userService{userRepo: userRepo, clock: c}
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own name and/or email. Empty values keep the current one.
func (s *userService) UpdateProfile(ctx context.Context, p domain.Principal, name, email string) (*domain.User, error) {
	user, err := s.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	user.UpdatedAt = s.clock.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
