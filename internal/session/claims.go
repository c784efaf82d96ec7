package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity claims the platform puts into its access tokens.
type Claims struct {
	UserID any    `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// FromToken builds a session from a bearer token. Identity is read from the
// token claims without verifying the signature. Non-empty fields of override
// win over the claims; for opaque tokens they are the only identity source.
func FromToken(token string, override User) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	s := &Session{Token: token}

	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	switch {
	case err == nil:
		id, convErr := userID(claims)
		if convErr != nil {
			return nil, convErr
		}
		s.User = User{ID: id, Email: claims.Email, Name: claims.Name, Role: claims.Role}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	case errors.Is(err, jwt.ErrTokenMalformed):
		// opaque token; identity has to come from the override
	default:
		return nil, fmt.Errorf("reading token claims: %w", err)
	}

	if override.ID != 0 {
		s.User.ID = override.ID
	}
	if override.Email != "" {
		s.User.Email = override.Email
	}
	if override.Name != "" {
		s.User.Name = override.Name
	}
	if override.Role != "" {
		s.User.Role = override.Role
	}

	return s, nil
}

func userID(c *Claims) (int, error) {
	raw := c.UserID
	if raw == nil && c.Subject != "" {
		raw = c.Subject
	}

	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("token user id %q is not numeric: %w", v, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported token user id type %T", raw)
	}
}
