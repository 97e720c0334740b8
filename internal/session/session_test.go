package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	jwtpkg "github.com/splax/reportdesk/pkg/jwt"
)

const testSecret = "session-secret"

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	m, err := NewManager(store, Options{CookieName: "session", Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)
	return m, store
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestLoadWithoutCookieReturnsFreshSession(t *testing.T) {
	m, store := newTestManager(t)

	sess, err := m.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.False(t, sess.Authenticated())
	require.Equal(t, 0, store.Len())
}

func TestCommitAndReloadKeepsIdentity(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	initialID := sess.ID
	sess.SignIn("user-1")
	require.True(t, sess.Modified())

	rec := httptest.NewRecorder()
	require.NoError(t, m.Commit(ctx, rec, sess))
	require.NotEqual(t, initialID, sess.ID, "sign in rotates the session id")
	require.False(t, sess.Modified())
	require.Equal(t, 1, store.Len())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)

	id, err := jwtpkg.ParseSession(cookies[0].Value, testSecret)
	require.NoError(t, err)
	require.Equal(t, sess.ID, id)

	loaded, err := m.Load(ctx, requestWithCookies(cookies))
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "user-1", loaded.UserID)
}

func TestSignInAgainDropsReplacedRecord(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SignIn("user-1")
	require.NoError(t, m.Commit(ctx, httptest.NewRecorder(), sess))
	firstID := sess.ID

	sess.SignIn("user-2")
	require.NoError(t, m.Commit(ctx, httptest.NewRecorder(), sess))
	require.NotEqual(t, firstID, sess.ID)
	require.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, firstID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadIgnoresForgedCookie(t *testing.T) {
	m, _ := newTestManager(t)
	token, err := jwtpkg.SignSession("someone-else", "other-secret", time.Hour)
	require.NoError(t, err)

	sess, err := m.Load(context.Background(), requestWithCookies([]*http.Cookie{{Name: "session", Value: token}}))
	require.NoError(t, err)
	require.NotEqual(t, "someone-else", sess.ID)
	require.False(t, sess.Authenticated())
}

func TestDestroyClearsIdentityAndCookie(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SignIn("user-1")
	rec := httptest.NewRecorder()
	require.NoError(t, m.Commit(ctx, rec, sess))
	cookies := rec.Result().Cookies()

	out := httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, out, sess))
	require.False(t, sess.Authenticated())
	require.Equal(t, 0, store.Len())

	cleared := out.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)

	reloaded, err := m.Load(ctx, requestWithCookies(cookies))
	require.NoError(t, err)
	require.False(t, reloaded.Authenticated())
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s-1", UserID: "u-1"}, time.Minute))
	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "s-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, &Session{ID: "s-2"}, time.Minute))
	now = now.Add(2 * time.Minute)
	store.cleanup()
	require.Equal(t, 0, store.Len())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	sess := &Session{ID: "s-1"}
	got, ok := FromContext(WithSession(context.Background(), sess))
	require.True(t, ok)
	require.Same(t, sess, got)
}

func TestRedisStoreSealsPayload(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	store, err := NewRedisStore(client, testSecret)
	require.NoError(t, err)

	created := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	payload, err := store.encode(record{UserID: "user-42", CreatedAt: created})
	require.NoError(t, err)
	require.NotContains(t, string(payload), "user-42")

	rec, err := store.decode(payload)
	require.NoError(t, err)
	require.Equal(t, "user-42", rec.UserID)
	require.True(t, rec.CreatedAt.Equal(created))

	_, err = store.decode([]byte("garbage-payload-that-is-long-enough"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	_, err := NewRedisStore(nil, testSecret)
	require.Error(t, err)
}
