package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"messagely/internal/domain"
	"messagely/internal/repository"
)

// RegisterParams carries the fields needed to create a user.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (bool, error)
	TouchLogin(ctx context.Context, username string) (time.Time, error)
	Get(ctx context.Context, username string) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.Profile, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	if params.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if params.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     params.Username,
		PasswordHash: string(hash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		JoinAt:       time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

// Authenticate reports whether the supplied password matches the stored hash.
// A missing username surfaces as ErrInvalidCredentials rather than NotFound so
// the response does not reveal which usernames exist.
func (s *userService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, domain.ErrInvalidCredentials
		}
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *userService) TouchLogin(ctx context.Context, username string) (time.Time, error) {
	return s.users.TouchLogin(ctx, username)
}

func (s *userService) Get(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) ListAll(ctx context.Context) ([]domain.Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.Profile, len(users))
	for i := range users {
		profiles[i] = users[i].Profile()
	}
	return profiles, nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clone := *user
	clone.PasswordHash = ""
	return &clone
}
