package service

import (
	"context"
	"fmt"

	"github.com/sli857/InvoTech-Inventory-Management-System/internal/core/domain"
	"github.com/sli857/InvoTech-Inventory-Management-System/internal/port"
)

type UserService struct {
	users port.UserStore
}

func NewUserService(users port.UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Add(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.Username == "" || u.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if _, err := domain.ParsePosition(string(u.Position)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	existing, err := s.users.GetUserByName(ctx, u.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username %q", ErrDuplicateEntry, u.Username)
	}
	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Confirm checks a username/password pair against the store. Credentials
// are compared as stored; auth semantics beyond that stay out of scope.
func (s *UserService) Confirm(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	user, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	if user.Password != password {
		return ErrBadCredentials
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, userID int64, username string) (*domain.User, error) {
	if userID == 0 && username == "" {
		return nil, fmt.Errorf("%w: either userId or username must be provided", ErrValidation)
	}
	var (
		user *domain.User
		err  error
	)
	if userID != 0 {
		user, err = s.users.GetUser(ctx, userID)
	} else {
		user, err = s.users.GetUserByName(ctx, username)
	}
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, userID int64, username, password, position *string) (*domain.User, error) {
	if username == nil && password == nil && position == nil {
		return nil, fmt.Errorf("%w: no value for this update is specified", ErrValidation)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if username != nil {
		user.Username = *username
	}
	if password != nil {
		user.Password = *password
	}
	if position != nil {
		parsed, err := domain.ParsePosition(*position)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		user.Position = parsed
	}
	if err := s.users.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, userID int64) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return s.users.DeleteUser(ctx, userID)
}
