package auth

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/user"
)

var (
	ErrTokenRequired   = errs.New(errs.ErrValidation, "auth: token is required")
	ErrUserRequired    = errs.New(errs.ErrValidation, "auth: user is required")
	ErrTTLInvalid      = errs.New(errs.ErrValidation, "auth: ttl must be positive")
	ErrSessionNotFound = errs.New(errs.ErrNotFound, "auth: session not found")
)

type Token string

// Session is a bearer session minted by the campus identity provider. This
// service only resolves sessions; it never issues credentials.
type Session struct {
	Token     Token
	UserID    user.ID
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token  Token
	UserID user.ID
	TTL    time.Duration
	Now    time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := strings.TrimSpace(string(params.Token))
	if token == "" {
		return nil, ErrTokenRequired
	}
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{
		Token:     Token(token),
		UserID:    params.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
}
