package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps JSON-encoded sessions in Redis with a TTL matching their expiry
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decode(raw)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, ttl, err := encode(s, time.Now())
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func encode(s *Session, now time.Time) ([]byte, time.Duration, error) {
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return nil, 0, fmt.Errorf("session %s already expired", s.ID)
		}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode session: %w", err)
	}
	return raw, ttl, nil
}

func decode(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	return &s, nil
}
