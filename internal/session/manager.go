package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	jwtpkg "github.com/splax/reportdesk/pkg/jwt"
)

const defaultTTL = 24 * time.Hour

// Options configures the session cookie.
type Options struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

// Manager moves sessions between the cookie, the request context and the store.
// The cookie holds a signed token naming the session id; identity lives only
// in the store.
type Manager struct {
	store Store
	opts  Options
	now   func() time.Time
}

// NewManager constructs a Manager over store.
func NewManager(store Store, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: nil store")
	}
	if opts.Secret == "" {
		return nil, errors.New("session: empty secret")
	}
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return &Manager{store: store, opts: opts, now: time.Now}, nil
}

// Load returns the session named by the request cookie, or a fresh empty
// session when the cookie is absent, invalid or points at nothing. Fresh
// sessions are not stored until committed.
func (m *Manager) Load(ctx context.Context, req *http.Request) (*Session, error) {
	cookie, err := req.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return m.fresh(), nil
	}
	id, err := jwtpkg.ParseSession(cookie.Value, m.opts.Secret)
	if err != nil {
		return m.fresh(), nil
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return m.fresh(), nil
		}
		return nil, err
	}
	return sess, nil
}

// Commit persists sess and writes its cookie. A session bound by SignIn gets
// a new id and its previous record is removed.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess.renew {
		if sess.previousID == "" {
			sess.previousID = sess.ID
		}
		sess.ID = uuid.NewString()
		sess.renew = false
	}
	sess.ExpiresAt = m.now().Add(m.opts.TTL)
	if err := m.store.Save(ctx, sess, m.opts.TTL); err != nil {
		return err
	}
	if prev := sess.previousID; prev != "" && prev != sess.ID {
		if err := m.store.Delete(ctx, prev); err != nil {
			return fmt.Errorf("drop replaced session: %w", err)
		}
	}
	sess.previousID = ""
	token, err := jwtpkg.SignSession(sess.ID, m.opts.Secret, m.opts.TTL)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	return nil
}

// Destroy clears the identity, removes the stored record and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	sess.SignOut()
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	return nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

func (m *Manager) fresh() *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: m.now().UTC()}
}
