package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/require"

	httpx "github.com/splax/reportdesk/internal/http"
	"github.com/splax/reportdesk/internal/repository/memory"
	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/internal/service/report"
	"github.com/splax/reportdesk/internal/service/users"
	"github.com/splax/reportdesk/internal/session"
)

func newServer(t *testing.T) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	manager, err := session.NewManager(store, session.Options{Secret: "client-test", TTL: time.Hour})
	require.NoError(t, err)

	router := httpx.NewRouter(logger, manager,
		auth.New(repo, logger),
		auth.NewGuard(repo, logger, false),
		users.New(repo, logger),
		report.New(repo, logger),
		httpx.NewMemoryRateLimiter(),
		repo.Ping,
	)
	t.Cleanup(router.Close)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	cli, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return cli
}

func TestClientSessionFlow(t *testing.T) {
	cli := newServer(t)
	ctx := context.Background()

	sess, err := cli.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.Equal(t, "a@x.com", sess.User.Email)

	me, err := cli.Whoami(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, me)
	require.Equal(t, sess.User.ID, me.ID)

	found, err := cli.FindUsers(ctx, sess.Token, "a@x.com")
	require.NoError(t, err)
	require.Len(t, found, 1)

	created, err := cli.CreateReport(ctx, sess.Token, ReportInput{
		Price: 9000, Make: "ford", Model: "focus", Year: 2015, Mileage: 80000, Lng: 2.35, Lat: 48.85,
	})
	require.NoError(t, err)
	require.Equal(t, "pending", created.State())
	require.Equal(t, sess.User.ID, created.UserID)

	approved, err := cli.SetApproval(ctx, sess.Token, created.ID, true)
	require.NoError(t, err)
	require.Equal(t, "approved", approved.State())

	rejected, err := cli.SetApproval(ctx, sess.Token, created.ID, false)
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.State())

	fetched, err := cli.GetReport(ctx, sess.Token, created.ID)
	require.NoError(t, err)
	require.Equal(t, "rejected", fetched.State())

	require.NoError(t, cli.Signout(ctx, sess.Token))
	_, err = cli.Whoami(ctx, sess.Token)
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestClientErrors(t *testing.T) {
	cli := newServer(t)
	ctx := context.Background()

	_, err := cli.Signup(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = cli.Signup(ctx, "a@x.com", "pw1")
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "email in use", apiErr.Message)

	_, err = cli.Signin(ctx, "a@x.com", "wrong")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "bad password", apiErr.Message)

	_, err = cli.Signin(ctx, "nobody@x.com", "pw1")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = cli.SetApproval(ctx, "", "any", true)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestNewNormalisesBaseURL(t *testing.T) {
	cli, err := New("localhost:3000/")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", cli.baseURL)

	cli, err = New("", WithCookieName("sid"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", cli.baseURL)
	require.Equal(t, "sid", cli.cookieName)
}

func TestAPIErrorMessage(t *testing.T) {
	require.Equal(t, "api request failed with status 500", APIError{Status: 500}.Error())
	require.Equal(t, "api request failed (403): forbidden resource", APIError{Status: 403, Message: "forbidden resource"}.Error())
}
