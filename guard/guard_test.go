package guard_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluentive/fluentive-go/guard"
	"github.com/fluentive/fluentive-go/session"
)

// fakeRefresher scripts the silent refresh: it commits token to the store
// when non-empty, and counts calls.
type fakeRefresher struct {
	store *session.Store
	token string
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.store.Set(f.token)
	return f.token, nil
}

func newGuard(t *testing.T) (*guard.Guard, *session.Store, *fakeRefresher) {
	t.Helper()
	store, err := session.NewStore()
	require.NoError(t, err)
	refresher := &fakeRefresher{store: store}
	return guard.New(store, refresher), store, refresher
}

func TestCheckPublicRouteNeverRefreshes(t *testing.T) {
	g, _, refresher := newGuard(t)

	result, err := g.Check(context.Background(), guard.Route{Path: "/"})
	require.NoError(t, err)
	require.True(t, result.Authorized)
	require.Equal(t, 0, refresher.calls)
}

func TestCheckProtectedRouteWithHeldToken(t *testing.T) {
	g, store, refresher := newGuard(t)
	store.Set("token-1")

	result, err := g.Check(context.Background(), guard.Route{Path: "/app/groups"})
	require.NoError(t, err)
	require.True(t, result.Authorized)
	require.Equal(t, 0, refresher.calls)
}

func TestCheckProtectedRouteBootstrapsViaRefresh(t *testing.T) {
	g, _, refresher := newGuard(t)
	refresher.token = "token-1"

	result, err := g.Check(context.Background(), guard.Route{Path: "/app/groups"})
	require.NoError(t, err)
	require.True(t, result.Authorized)
	require.Equal(t, 1, refresher.calls)
}

func TestCheckProtectedRouteRedirectsWhenSessionDead(t *testing.T) {
	g, _, _ := newGuard(t)

	result, err := g.Check(context.Background(), guard.Route{Path: "/app/groups", RawQuery: "page=2"})
	require.NoError(t, err)
	require.False(t, result.Authorized)
	require.Equal(t, "/login", result.RedirectTo)
	require.Equal(t, "/app/groups?page=2", result.From)
}

func TestCheckAuthOnlyRouteRedirectsLoggedInUser(t *testing.T) {
	g, store, _ := newGuard(t)
	store.Set("token-1")

	result, err := g.Check(context.Background(), guard.Route{Path: "/login"})
	require.NoError(t, err)
	require.False(t, result.Authorized)
	require.Equal(t, "/app", result.RedirectTo)
}

func TestCheckAuthOnlyRouteRendersForLoggedOutUser(t *testing.T) {
	g, _, refresher := newGuard(t)

	result, err := g.Check(context.Background(), guard.Route{Path: "/login"})
	require.NoError(t, err)
	require.True(t, result.Authorized)
	// the bootstrap refresh still ran; a live cookie should skip the login view
	require.Equal(t, 1, refresher.calls)
}

func TestCheckAuthOnlyRouteAfterSuccessfulBootstrap(t *testing.T) {
	g, _, refresher := newGuard(t)
	refresher.token = "token-1"

	result, err := g.Check(context.Background(), guard.Route{Path: "/register"})
	require.NoError(t, err)
	require.Equal(t, "/app", result.RedirectTo)
}

func TestCheckCanceledContext(t *testing.T) {
	g, _, _ := newGuard(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Check(ctx, guard.Route{Path: "/app/groups"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckCustomPaths(t *testing.T) {
	store, err := session.NewStore()
	require.NoError(t, err)
	refresher := &fakeRefresher{store: store}
	g := guard.New(store, refresher,
		guard.WithLoginPath("/signin"),
		guard.WithPublicPaths("/", "/signin"),
		guard.WithAuthOnlyPaths("/signin"),
	)

	result, err := g.Check(context.Background(), guard.Route{Path: "/dashboard"})
	require.NoError(t, err)
	require.Equal(t, "/signin", result.RedirectTo)
}
