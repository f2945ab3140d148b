package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the single source of truth, within one client instance, for the
// current access token. The token is an opaque string; "" means no session.
//
// Set persists the token to the configured Storage, notifies subscribers
// synchronously, and publishes a login/logout signal on the configured
// Channel. Updates that arrive from the Channel are applied without
// re-publishing, so two stores on the same channel never relay in a loop.
type Store struct {
	origin  string
	storage Storage
	channel Channel
	logger  zerolog.Logger

	mu        sync.Mutex
	token     string
	listeners []storeListener
	nextID    int

	unsubscribe func()
}

type storeListener struct {
	id int
	fn func(token string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStorage sets the per-instance token persistence. Defaults to an
// in-memory storage.
func WithStorage(storage Storage) StoreOption {
	return func(s *Store) { s.storage = storage }
}

// WithChannel connects the store to a broadcast channel shared with sibling
// client instances.
func WithChannel(channel Channel) StoreOption {
	return func(s *Store) { s.channel = channel }
}

// WithStoreLogger sets the logger. Defaults to a disabled logger.
func WithStoreLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a Store, loading any previously persisted token from the
// configured Storage.
func NewStore(options ...StoreOption) (*Store, error) {
	s := &Store{
		origin:  uuid.NewString(),
		storage: NewMemoryStorage(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	token, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	s.token = token

	if s.channel != nil {
		unsubscribe, err := s.channel.Subscribe(s.applySignal)
		if err != nil {
			return nil, err
		}
		s.unsubscribe = unsubscribe
	}
	return s, nil
}

// Get returns the current access token, or "" when no session is held. It
// never blocks on I/O.
func (s *Store) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set replaces the access token ("" clears it), persists the change, invokes
// all subscribers before returning, and broadcasts the change to sibling
// instances.
//
// Ordering is guaranteed relative to the calling goroutine: code running
// after Set returns observes the new value, with all subscribers already
// notified. When Set is called from several goroutines at once the
// notification rounds may interleave, so a listener that needs the committed
// value should read the store rather than trust its argument to be latest.
func (s *Store) Set(token string) {
	s.set(token, true)
}

// Subscribe registers a listener invoked synchronously after every committed
// change. The returned function removes the listener.
func (s *Store) Subscribe(fn func(token string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, storeListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the store from its broadcast channel.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Store) set(token string, broadcast bool) {
	s.mu.Lock()
	s.token = token
	var err error
	if token == "" {
		err = s.storage.Clear()
	} else {
		err = s.storage.Store(token)
	}
	listeners := make([]storeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("token storage write failed")
	}

	// Listeners run outside the lock so they may call Get, but still before
	// Set returns: anything that runs after Set observes the new value.
	// Concurrent set rounds may deliver interleaved; see the Set doc.
	for _, l := range listeners {
		l.fn(token)
	}

	if !broadcast || s.channel == nil {
		return
	}
	sig := Signal{Origin: s.origin, Kind: SignalLogout, At: time.Now().UnixMilli()}
	if token != "" {
		sig.Kind = SignalLogin
		sig.Token = token
	}
	if err := s.channel.Publish(sig); err != nil {
		s.logger.Warn().Err(err).Msg("session broadcast failed")
	}
}

// applySignal handles a signal relayed from a sibling instance. Signals the
// store itself published are ignored, and the update is applied with
// broadcast suppressed.
func (s *Store) applySignal(sig Signal) {
	if sig.Origin == s.origin {
		return
	}
	switch sig.Kind {
	case SignalLogin:
		s.set(sig.Token, false)
	case SignalLogout:
		s.set("", false)
	}
}
