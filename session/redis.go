package session

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisChannel relays signals across processes via Redis pub/sub. Pub/sub
// messages are not persisted, which gives the publish-and-gone property the
// signal protocol requires: a process that subscribes later sees nothing.
type RedisChannel struct {
	rdb    *redis.Client
	name   string
	logger zerolog.Logger
}

// NewRedisChannel creates a channel on the named pub/sub topic. An empty
// name defaults to "fluentive:session".
func NewRedisChannel(rdb *redis.Client, name string, logger zerolog.Logger) *RedisChannel {
	if name == "" {
		name = "fluentive:session"
	}
	return &RedisChannel{rdb: rdb, name: name, logger: logger}
}

func (c *RedisChannel) Publish(sig Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return c.rdb.Publish(context.Background(), c.name, data).Err()
}

func (c *RedisChannel) Subscribe(fn func(Signal)) (func(), error) {
	sub := c.rdb.Subscribe(context.Background(), c.name)
	if _, err := sub.Receive(context.Background()); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			var sig Signal
			if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
				c.logger.Warn().Err(err).Msg("dropping malformed session signal")
				continue
			}
			// Redis delivers to the publisher too; the store drops its own
			// origin, so self-delivery is harmless.
			fn(sig)
		}
	}()

	return func() { _ = sub.Close() }, nil
}
