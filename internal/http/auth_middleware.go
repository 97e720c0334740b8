package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/internal/session"
)

type contextSetter interface {
	SetContext(context.Context)
}

// withSession loads the caller's session and threads it through the request context.
func (r *Router) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, err := r.sessions.Load(req.Context(), req)
		if err != nil {
			r.logger.Error("session load failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusInternalServerError, "session unavailable")
			return
		}
		ctx := session.WithSession(req.Context(), sess)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireAuth runs the guard and only invokes next for authenticated sessions.
// Must be wrapped by withSession.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, _ := session.FromContext(req.Context())
		ctx, err := r.guard.Resolve(req.Context(), sess)
		if err != nil {
			r.rejectUnauthenticated(w, req, sess, err)
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) rejectUnauthenticated(w http.ResponseWriter, req *http.Request, sess *session.Session, err error) {
	if !errors.Is(err, auth.ErrUnauthenticated) {
		r.writeServiceError(w, req, err)
		return
	}
	reason := "no_session_user"
	if errors.Is(err, auth.ErrOrphanedSession) {
		reason = "orphaned_session"
		if derr := r.sessions.Destroy(req.Context(), w, sess); derr != nil {
			r.logger.Error("clear orphaned session failed", "error", derr)
		}
	}
	r.metrics.guardRejected(routeLabel(req), reason)
	r.logger.Warn("session guard rejected request", "path", req.URL.Path, "reason", reason)
	writeError(w, http.StatusForbidden, "forbidden resource")
}

// currentSession returns the session loaded by withSession.
func currentSession(req *http.Request) (*session.Session, bool) {
	return session.FromContext(req.Context())
}
