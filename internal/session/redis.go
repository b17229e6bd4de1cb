package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ecoxchange/internal/marketplace"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ecoxchange:session:"

// RedisRepository stores JSON-encoded session state in Redis with a TTL.
type RedisRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// DialRedis connects to Redis and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewRedisRepository wraps an open client. A zero ttl keeps keys forever.
func NewRedisRepository(rdb *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisRepository) key(id string) string {
	return keyPrefix + id
}

// Load fetches and decodes the session state.
func (r *RedisRepository) Load(ctx context.Context, id string) (marketplace.State, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return marketplace.State{}, ErrNotFound
	}
	if err != nil {
		return marketplace.State{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var state marketplace.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return marketplace.State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return state, nil
}

// Save encodes the state and refreshes the key's TTL.
func (r *RedisRepository) Save(ctx context.Context, id string, state marketplace.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := r.rdb.Set(ctx, r.key(id), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
