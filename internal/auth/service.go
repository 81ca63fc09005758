// Package auth provides password hashing and the register/login service used
// by the interactive shell.
package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mcosta/bibman/internal/database/users"
	"github.com/mcosta/bibman/internal/entities"
)

// ErrInvalidCredentials is returned on login with an unknown username or a
// wrong password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Service verifies and registers users against the users repository.
type Service struct {
	users      *users.Repository
	bcryptCost int
}

// NewService creates an auth service. cost is the bcrypt cost factor.
func NewService(repo *users.Repository, cost int) *Service {
	return &Service{users: repo, bcryptCost: cost}
}

// Register creates a new user with a hashed password.
func (s *Service) Register(username, password, email string) (*entities.User, error) {
	if username == "" {
		return nil, errors.New("username must not be empty")
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(username, hash, email)
	if err != nil {
		return nil, fmt.Errorf("failed to register %q: %w", username, err)
	}
	return user, nil
}

// Login returns the user when the username exists and the password matches.
func (s *Service) Login(username, password string) (*entities.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := CheckPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}
