// Package session keeps the server-side identity record addressed by the
// client's session cookie. A session carries at most the authenticated user id.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Session is the per-client record. An empty UserID means unauthenticated.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time

	// previousID is the stored id a renewed session replaces.
	previousID string
	renew      bool
	dirty      bool
}

// Authenticated reports whether the session carries a user id.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// SignIn binds the session to userID. The session id is rotated on commit.
func (s *Session) SignIn(userID string) {
	s.UserID = userID
	s.renew = true
	s.dirty = true
}

// SignOut clears the bound identity.
func (s *Session) SignOut() {
	s.UserID = ""
	s.dirty = true
}

// Modified reports whether the session changed since it was loaded.
func (s *Session) Modified() bool {
	return s.dirty
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Close() error
}

type contextKey string

const contextKeySession contextKey = "reportdesk-session"

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKeySession, sess)
}

// FromContext returns the session attached by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKeySession).(*Session)
	return sess, ok && sess != nil
}
