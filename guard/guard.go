// Package guard decides, per navigation, whether a view may render, and
// performs the best-effort silent login when a fresh client instance lands
// on a protected route.
package guard

import (
	"context"

	"github.com/fluentive/fluentive-go/session"
)

// Route is a navigation target: path plus raw query.
type Route struct {
	Path     string
	RawQuery string
}

// Result is the settled outcome of a check: either the view may render, or
// the caller should navigate to RedirectTo. When the redirect targets the
// login view, From carries the originally requested path+query so the user
// can be returned there after authenticating.
type Result struct {
	Authorized bool
	RedirectTo string
	From       string
}

// Refresher is the silent-refresh dependency; *session.Coordinator
// satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Guard gates navigation using the session store, bootstrapping absent
// sessions via the refresher.
type Guard struct {
	store     *session.Store
	refresher Refresher
	loginPath string
	appPath   string
	public    map[string]bool
	authOnly  map[string]bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath sets the login view path. Default "/login".
func WithLoginPath(path string) Option {
	return func(g *Guard) { g.loginPath = path }
}

// WithAppPath sets where already-authenticated users are sent when they hit
// an auth-only view. Default "/app".
func WithAppPath(path string) Option {
	return func(g *Guard) { g.appPath = path }
}

// WithPublicPaths sets the paths that never require a session and never
// trigger a bootstrap refresh. Defaults: "/", "/login", "/register", "/join".
func WithPublicPaths(paths ...string) Option {
	return func(g *Guard) { g.public = pathSet(paths) }
}

// WithAuthOnlyPaths sets the views that only make sense without a session
// (login, register). Defaults: "/login", "/register".
func WithAuthOnlyPaths(paths ...string) Option {
	return func(g *Guard) { g.authOnly = pathSet(paths) }
}

func New(store *session.Store, refresher Refresher, options ...Option) *Guard {
	g := &Guard{
		store:     store,
		refresher: refresher,
		loginPath: "/login",
		appPath:   "/app",
		public:    pathSet([]string{"/", "/login", "/register", "/join"}),
		authOnly:  pathSet([]string{"/login", "/register"}),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Check evaluates one navigation. Public non-auth routes resolve immediately
// without ever forcing a refresh. For everything else: a held token settles
// the check synchronously; otherwise a silent refresh is attempted first.
// If ctx ends while the check is in flight, Check returns the context error
// and the result must be discarded; no navigation may be acted on.
func (g *Guard) Check(ctx context.Context, route Route) (Result, error) {
	public := g.public[route.Path]
	authOnly := g.authOnly[route.Path]

	if public && !authOnly {
		return Result{Authorized: true}, nil
	}

	if g.store.Get() != "" {
		return g.settle(authOnly), nil
	}

	// No token in this instance yet: bootstrap from the refresh cookie.
	if _, err := g.refresher.Refresh(ctx); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if g.store.Get() != "" {
		return g.settle(authOnly), nil
	}

	if authOnly {
		// Still logged out on a login/register view: let it render.
		return Result{Authorized: true}, nil
	}

	from := route.Path
	if route.RawQuery != "" {
		from += "?" + route.RawQuery
	}
	return Result{RedirectTo: g.loginPath, From: from}, nil
}

// settle resolves a check that found a live session.
func (g *Guard) settle(authOnly bool) Result {
	if authOnly {
		return Result{RedirectTo: g.appPath}
	}
	return Result{Authorized: true}
}

func pathSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}
