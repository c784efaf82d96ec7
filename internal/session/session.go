// Package session supplies the bearer token and cached user identity that every
// API call is made with.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleCandidate = "candidate"
	RoleEmployee  = "employee"
	RoleAdmin     = "admin"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated: no active session")
	ErrWrongRole        = errors.New("role is not allowed")
)

type User struct {
	ID    int    `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Expired reports whether the session carries an expiry that is already in the past.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Provider exposes the current session to the orchestration layer.
type Provider interface {
	Session(ctx context.Context) (*Session, error)
	HasRole(ctx context.Context, role string) bool
}

// Require returns the active session if its user has the given role.
// It never touches the network.
func Require(ctx context.Context, p Provider, role string) (*Session, error) {
	if p == nil {
		return nil, ErrNotAuthenticated
	}

	s, err := p.Session(ctx)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(s.User.Role, role) {
		return nil, fmt.Errorf("%w: %q required, session has %q", ErrWrongRole, role, s.User.Role)
	}

	return s, nil
}

// Static is a Provider over a session resolved once at startup.
type Static struct {
	session *Session
	now     func() time.Time
}

func NewStatic(s *Session) *Static {
	return &Static{session: s, now: time.Now}
}

func (p *Static) Session(_ context.Context) (*Session, error) {
	if p == nil || p.session == nil || strings.TrimSpace(p.session.Token) == "" {
		return nil, ErrNotAuthenticated
	}

	if p.session.Expired(p.now()) {
		return nil, fmt.Errorf("%w: session expired at %s", ErrNotAuthenticated, p.session.ExpiresAt.Format(time.RFC3339))
	}

	return p.session, nil
}

func (p *Static) HasRole(ctx context.Context, role string) bool {
	s, err := p.Session(ctx)
	if err != nil {
		return false
	}
	return strings.EqualFold(s.User.Role, role)
}

// Token returns the bearer token of the active session.
func (p *Static) Token(ctx context.Context) (string, error) {
	s, err := p.Session(ctx)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}
