package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrAuthInvalidCredentials = errors.New("invalid email or password")

// Organizer is the single account allowed to change tournaments.
type Organizer struct {
	Email string `json:"email"`
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*Organizer, error)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	adminEmail        string
	adminPasswordHash []byte
}

// NewAuthService checks logins against the configured organizer. With an empty
// email every login fails.
func NewAuthService(adminEmail, adminPasswordHash string) AuthService {
	return &authService{
		adminEmail:        strings.TrimSpace(adminEmail),
		adminPasswordHash: []byte(adminPasswordHash),
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*Organizer, error) {
	if s.adminEmail == "" || !strings.EqualFold(strings.TrimSpace(input.Email), s.adminEmail) {
		return nil, ErrAuthInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return &Organizer{Email: s.adminEmail}, nil
}
