package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guizzs26/suya-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects with pooling tuned for a single client process
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		// Fall back to a bare host:port
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 10
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisSessionStore keeps one session's binding and pending registration under keys that expire
// with the session, so an abandoned session cleans itself up
type RedisSessionStore struct {
	client    redis.Cmdable
	sessionID string
	ttl       time.Duration
}

func NewRedisSessionStore(client redis.Cmdable, sessionID string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *RedisSessionStore) numberKey() string {
	return fmt.Sprintf("queue:session:%s:number", s.sessionID)
}

func (s *RedisSessionStore) pendingKey() string {
	return fmt.Sprintf("queue:session:%s:pending", s.sessionID)
}

func (s *RedisSessionStore) QueueNumber(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.numberKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read queue number: %w", err)
	}
	return v, nil
}

func (s *RedisSessionStore) BindQueueNumber(ctx context.Context, number string) error {
	if err := s.client.Set(ctx, s.numberKey(), number, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to bind queue number: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Pending(ctx context.Context) (*models.PendingRegistration, error) {
	data, err := s.client.Get(ctx, s.pendingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending registration: %w", err)
	}

	var p models.PendingRegistration
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: pending registration: %w", ErrCorruptRecord, err)
	}
	return &p, nil
}

func (s *RedisSessionStore) SavePending(ctx context.Context, p models.PendingRegistration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending registration: %w", err)
	}
	if err := s.client.Set(ctx, s.pendingKey(), string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pending registration: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) ClearPending(ctx context.Context) error {
	return s.client.Del(ctx, s.pendingKey()).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.numberKey(), s.pendingKey()).Err()
}
