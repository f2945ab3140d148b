package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Coordinator performs the silent refresh: it trades the long-lived httponly
// refresh cookie for a new access token. At most one refresh is in flight
// per instance; concurrent callers join the pending attempt and observe its
// single outcome.
//
// Refresh never reports the session's expiry as an error. An unreachable or
// rejecting refresh endpoint resolves to an absent token ("") with a nil
// error; the only error returned is the caller's context ending.
type Coordinator struct {
	store    *Store
	endpoint string
	client   *http.Client
	logger   zerolog.Logger

	mu      sync.Mutex
	pending *refreshCall
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithHTTPClient sets the HTTP client. It must carry the cookie jar shared
// with the rest of the SDK so the refresh cookie travels on the call.
func WithHTTPClient(client *http.Client) CoordinatorOption {
	return func(c *Coordinator) { c.client = client }
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

// NewCoordinator creates a Coordinator posting to the given refresh endpoint
// (e.g. https://host/api/auth/refresh).
func NewCoordinator(store *Store, endpoint string, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:    store,
		endpoint: endpoint,
		client:   http.DefaultClient,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Refresh returns the held token immediately when one is present, joins a
// pending refresh when one is in flight, and otherwise performs the network
// refresh, committing the outcome to the store. "" with a nil error means
// the session is gone; callers must check the value, not just the error.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	if token := c.store.Get(); token != "" {
		return token, nil
	}

	c.mu.Lock()
	if c.pending != nil {
		call := c.pending
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.pending = call
	c.mu.Unlock()

	call.token, call.err = c.doRefresh(ctx)

	// Reset before signalling completion so a later caller starts fresh.
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	close(call.done)

	return call.token, call.err
}

func (c *Coordinator) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("building refresh request")
		c.store.Set("")
		return "", nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// The caller gave up; the session may still be alive, so the
			// store is left untouched.
			return "", ctx.Err()
		}
		c.logger.Debug().Err(err).Msg("refresh request failed")
		c.store.Set("")
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug().Int("status", resp.StatusCode).Msg("refresh rejected")
		c.store.Set("")
		return "", nil
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		c.logger.Debug().Err(err).Msg("refresh response missing access token")
		c.store.Set("")
		return "", nil
	}

	c.store.Set(body.AccessToken)
	return body.AccessToken, nil
}
