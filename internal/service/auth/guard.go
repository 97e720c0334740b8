package auth

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
	"github.com/splax/reportdesk/internal/session"
)

var (
	// ErrUnauthenticated rejects requests whose session carries no user id.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrOrphanedSession is an ErrUnauthenticated whose session names a user
	// that no longer exists.
	ErrOrphanedSession = fmt.Errorf("%w: session user no longer exists", ErrUnauthenticated)
)

// Guard gates authenticated-only operations on the session identity.
type Guard struct {
	users         repository.UserRepository
	logger        *slog.Logger
	allowOrphaned bool
}

// NewGuard constructs a Guard. With allowOrphaned set, a session naming a
// deleted user passes with no current user attached instead of failing.
func NewGuard(users repository.UserRepository, logger *slog.Logger, allowOrphaned bool) Guard {
	return Guard{users: users, logger: logger, allowOrphaned: allowOrphaned}
}

// Resolve returns ctx augmented with the session's user, or ErrUnauthenticated.
// It performs a single store read and never writes.
func (g Guard) Resolve(ctx context.Context, sess *session.Session) (context.Context, error) {
	if !sess.Authenticated() {
		return ctx, ErrUnauthenticated
	}
	user, err := g.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return ctx, fmt.Errorf("resolve session user: %w", err)
		}
		if g.allowOrphaned {
			g.logger.Warn("session user missing, continuing without user", "session_user_id", sess.UserID)
			return ctx, nil
		}
		return ctx, ErrOrphanedSession
	}
	return WithCurrentUser(ctx, user), nil
}

type contextKey string

const contextKeyUser contextKey = "reportdesk-current-user"

// WithCurrentUser attaches user to ctx.
func WithCurrentUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// CurrentUser returns the user attached by the guard, if any.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok && user != nil
}
