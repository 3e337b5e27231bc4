// Package auth resolves bearer sessions issued by the campus identity
// provider into users.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainauth "campusconnect/internal/domain/auth"
	domainuser "campusconnect/internal/domain/user"
)

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Tokens     TokenGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// ResolveToken returns the live session behind token and its user. Sessions
// of deleted users are dropped.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(false); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			_ = s.Sessions.Delete(ctx, session.Token)
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

// Revoke drops a session. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.ensureDependencies(false); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "session revoked")
	}
	return nil
}

// IssueSession mints a session for an existing user. Production sessions come
// from the identity provider; this backs demo seeding and tests.
func (s *Service) IssueSession(ctx context.Context, userID domainuser.ID) (string, error) {
	if err := s.ensureDependencies(true); err != nil {
		return "", err
	}
	if _, err := s.Users.ByID(ctx, userID); err != nil {
		return "", err
	}
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: userID,
		TTL:    s.sessionTTL(),
		Now:    time.Now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) ensureDependencies(issuing bool) error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case issuing && s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
