package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore implements Store on a Redis instance. Documents live as
// JSON strings under prefixed keys; change notification rides a
// per-path pub/sub channel carrying the new document, so subscribers
// never re-read after the initial fetch.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *logrus.Entry
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    logrus.WithField("component", "store"),
	}, nil
}

func (s *RedisStore) key(path string) string     { return s.prefix + path }
func (s *RedisStore) channel(path string) string { return s.prefix + "ch:" + path }

func (s *RedisStore) Write(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(path), data, 0)
	pipe.Publish(ctx, s.channel(path), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) ReadOnce(ctx context.Context, path string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func([]byte)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, s.channel(path))
	// Force the SUBSCRIBE round-trip so no message published after this
	// call returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	go func() {
		if data, found, err := s.ReadOnce(ctx, path); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("initial read failed")
		} else if found {
			fn(data)
		}
		for msg := range pubsub.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	return func() { pubsub.Close() }, nil
}

func (s *RedisStore) ServerTimestamp(ctx context.Context) int64 {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		s.log.WithError(err).Debug("server time unavailable, using local clock")
		return time.Now().UnixMilli()
	}
	return t.UnixMilli()
}

func (s *RedisStore) Close() error { return s.client.Close() }
