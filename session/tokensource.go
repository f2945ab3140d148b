package session

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned when no access token is held and the silent
// refresh could not establish one.
var ErrNoSession = errors.New("no active session")

// TokenSource adapts the store and coordinator to oauth2.TokenSource, so the
// SDK's session composes with oauth2.NewClient and other x/oauth2 plumbing.
type TokenSource struct {
	ctx         context.Context
	store       *Store
	coordinator *Coordinator
}

func NewTokenSource(ctx context.Context, store *Store, coordinator *Coordinator) *TokenSource {
	return &TokenSource{ctx: ctx, store: store, coordinator: coordinator}
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

func (ts *TokenSource) Token() (*oauth2.Token, error) {
	token := ts.store.Get()
	if token == "" {
		refreshed, err := ts.coordinator.Refresh(ts.ctx)
		if err != nil {
			return nil, err
		}
		if refreshed == "" {
			return nil, ErrNoSession
		}
		token = refreshed
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
