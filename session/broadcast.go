package session

import "sync"

// SignalKind identifies a session change relayed between client instances.
type SignalKind string

const (
	SignalLogin  SignalKind = "login"
	SignalLogout SignalKind = "logout"
)

// Signal is a transient session-change notification. A login signal carries
// the new token; a logout signal carries only a timestamp. Signals are
// publish-and-gone: no channel implementation retains them, so an instance
// that joins later derives its state via refresh, never from a stale signal.
type Signal struct {
	Origin string     `json:"origin"`
	Kind   SignalKind `json:"kind"`
	Token  string     `json:"token,omitempty"`
	At     int64      `json:"at"`
}

// Channel relays signals between client instances sharing one session.
// Delivery is best effort, at most once, with no ordering guarantee relative
// to local store mutations; consumers must tolerate transiently lagging a
// sibling's state.
type Channel interface {
	Publish(sig Signal) error
	// Subscribe registers a handler for signals published by other
	// instances. The returned function removes the handler.
	Subscribe(fn func(Signal)) (func(), error)
}

// MemoryHub connects stores living in the same process. Publishing delivers
// the signal to every other subscriber and retains nothing.
type MemoryHub struct {
	mu     sync.Mutex
	subs   map[int]func(Signal)
	nextID int
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[int]func(Signal))}
}

// Channel returns a Channel attached to the hub. Each store should use its
// own channel; a channel's own publishes are not delivered back to it.
func (h *MemoryHub) Channel() Channel {
	return &hubChannel{hub: h}
}

type hubChannel struct {
	hub *MemoryHub
	ids []int
}

func (c *hubChannel) Publish(sig Signal) error {
	c.hub.mu.Lock()
	handlers := make([]func(Signal), 0, len(c.hub.subs))
	for id, fn := range c.hub.subs {
		if c.owns(id) {
			continue
		}
		handlers = append(handlers, fn)
	}
	c.hub.mu.Unlock()

	for _, fn := range handlers {
		fn(sig)
	}
	return nil
}

func (c *hubChannel) Subscribe(fn func(Signal)) (func(), error) {
	c.hub.mu.Lock()
	id := c.hub.nextID
	c.hub.nextID++
	c.hub.subs[id] = fn
	c.ids = append(c.ids, id)
	c.hub.mu.Unlock()

	return func() {
		c.hub.mu.Lock()
		defer c.hub.mu.Unlock()
		delete(c.hub.subs, id)
	}, nil
}

func (c *hubChannel) owns(id int) bool {
	for _, own := range c.ids {
		if own == id {
			return true
		}
	}
	return false
}
