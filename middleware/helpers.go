package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims, которые выдаёт AuthHandler.Login
const (
	ClaimEmail = "email"
	ClaimRole  = "role"

	RoleOrganizer = "organizer"
)

// WithClaims returns ctx carrying claims the way Authenticate stores them.
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

func GetOrganizerEmailFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, ClaimEmail)
}

func GetRoleFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, ClaimRole)
}

func stringClaim(ctx context.Context, name string) (string, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("user claims not found in context or invalid type")
	}

	claim, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", name)
	}

	value, ok := claim.(string)
	if !ok || value == "" {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", name, claim)
	}
	return value, nil
}
