package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
	"github.com/splax/reportdesk/internal/session"
)

func TestGuardRejectsAnonymousSession(t *testing.T) {
	calls := 0
	users := userRepoMock{
		getByIDFunc: func(context.Context, string) (*domain.User, error) {
			calls++
			return nil, repository.ErrNotFound
		},
	}
	guard := NewGuard(users, newLogger(), false)

	for _, sess := range []*session.Session{nil, {ID: "s-1"}} {
		if _, err := guard.Resolve(context.Background(), sess); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no store reads, got %d", calls)
	}
}

func TestGuardAttachesCurrentUser(t *testing.T) {
	calls := 0
	users := userRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.User, error) {
			calls++
			return &domain.User{ID: id, Email: "a@x.com"}, nil
		},
	}
	guard := NewGuard(users, newLogger(), false)

	ctx, err := guard.Resolve(context.Background(), &session.Session{ID: "s-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, ok := CurrentUser(ctx)
	if !ok || user.ID != "user-1" {
		t.Fatalf("expected current user-1, got %+v", user)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one store read, got %d", calls)
	}
}

func TestGuardRejectsOrphanedSessionByDefault(t *testing.T) {
	guard := NewGuard(userRepoMock{}, newLogger(), false)

	_, err := guard.Resolve(context.Background(), &session.Session{ID: "s-1", UserID: "deleted"})
	if !errors.Is(err, ErrOrphanedSession) {
		t.Fatalf("expected ErrOrphanedSession, got %v", err)
	}
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("orphaned session must count as unauthenticated")
	}
}

func TestGuardAllowsOrphanedSessionWhenConfigured(t *testing.T) {
	guard := NewGuard(userRepoMock{}, newLogger(), true)

	ctx, err := guard.Resolve(context.Background(), &session.Session{ID: "s-1", UserID: "deleted"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := CurrentUser(ctx); ok {
		t.Fatalf("expected no current user attached")
	}
}

func TestGuardSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	users := userRepoMock{
		getByIDFunc: func(context.Context, string) (*domain.User, error) { return nil, boom },
	}
	guard := NewGuard(users, newLogger(), true)

	_, err := guard.Resolve(context.Background(), &session.Session{ID: "s-1", UserID: "user-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("store failure must not read as unauthenticated")
	}
}
