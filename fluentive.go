// Package fluentive is the Go client for the Fluentive English-learning
// platform. It bundles the session lifecycle (token store, silent refresh,
// retry-once request executor) with typed services for every API resource.
package fluentive

import (
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fluentive/fluentive-go/auth"
	"github.com/fluentive/fluentive-go/groups"
	"github.com/fluentive/fluentive-go/invites"
	"github.com/fluentive/fluentive-go/lessons"
	"github.com/fluentive/fluentive-go/media"
	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/session"
	"github.com/fluentive/fluentive-go/tasks"
	"github.com/fluentive/fluentive-go/vocabulary"
)

// Client aggregates the SDK: one session, one HTTP client with a cookie jar
// for the refresh cookie, and a service per API resource.
type Client struct {
	Session     *session.Store
	Coordinator *session.Coordinator
	REST        *rest.Client

	Auth       *auth.Service
	Groups     *groups.Service
	Invites    *invites.Service
	Lessons    *lessons.Service
	Tasks      *tasks.Service
	Vocabulary *vocabulary.Service
	Media      *media.Service
}

type config struct {
	httpClient *http.Client
	storage    session.Storage
	channel    session.Channel
	logger     zerolog.Logger
}

// Option configures New.
type Option func(*config)

// WithHTTPClient sets the HTTP client. It should carry a cookie jar, or the
// refresh cookie delivered on login is lost.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithStorage sets the session token persistence (e.g. a token file for a
// CLI). Defaults to in-memory.
func WithStorage(storage session.Storage) Option {
	return func(c *config) { c.storage = storage }
}

// WithChannel connects the session to a broadcast channel shared with
// sibling client instances.
func WithChannel(channel session.Channel) Option {
	return func(c *config) { c.channel = channel }
}

// WithLogger sets the logger used across the SDK. Defaults to disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New builds a Client for the API at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	cfg := config{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		cfg.httpClient = &http.Client{Jar: jar}
	}

	storeOptions := []session.StoreOption{session.WithStoreLogger(cfg.logger)}
	if cfg.storage != nil {
		storeOptions = append(storeOptions, session.WithStorage(cfg.storage))
	}
	if cfg.channel != nil {
		storeOptions = append(storeOptions, session.WithChannel(cfg.channel))
	}
	store, err := session.NewStore(storeOptions...)
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(baseURL, "/")
	coordinator := session.NewCoordinator(store, base+"/api/auth/refresh",
		session.WithHTTPClient(cfg.httpClient),
		session.WithLogger(cfg.logger),
	)
	api := rest.NewClient(base, store, coordinator,
		rest.WithHTTPClient(cfg.httpClient),
		rest.WithLogger(cfg.logger),
	)

	return &Client{
		Session:     store,
		Coordinator: coordinator,
		REST:        api,

		Auth:       auth.New(api, store),
		Groups:     groups.New(api),
		Invites:    invites.New(api),
		Lessons:    lessons.New(api),
		Tasks:      tasks.New(api),
		Vocabulary: vocabulary.New(api),
		Media:      media.New(base, cfg.httpClient, store),
	}, nil
}

// Close detaches the session from its broadcast channel.
func (c *Client) Close() {
	c.Session.Close()
}
