package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// RedisConfig configures the Redis-backed stores.
type RedisConfig struct {
	Prefix     string        // key prefix, default "moodvie"
	SessionTTL time.Duration // idle expiry for sessions, 0 = no expiry
}

func (c *RedisConfig) defaults() {
	if c.Prefix == "" {
		c.Prefix = "moodvie"
	}
}

// ──────────────────────────────────────────────
// Cache backend
// ──────────────────────────────────────────────

// RedisCacheStore implements moodvie.CacheStore on Redis, so fingerprinted
// search, embedding and summary entries survive restarts and are shared
// across engine instances. Keys are namespaced "{prefix}:cache:{key}".
type RedisCacheStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCacheStore creates a CacheStore backed by the given client.
func NewRedisCacheStore(client redis.UniversalClient, config ...RedisConfig) *RedisCacheStore {
	cfg := RedisConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg.defaults()
	return &RedisCacheStore{client: client, prefix: cfg.Prefix}
}

func (s *RedisCacheStore) key(k string) string {
	return s.prefix + ":cache:" + k
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &moodvie.StoreError{Op: "cache.get", Err: err}
	}
	return val, true, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return &moodvie.StoreError{Op: "cache.set", Err: err}
	}
	return nil
}

func (s *RedisCacheStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return &moodvie.StoreError{Op: "cache.delete", Err: err}
	}
	return nil
}

var _ moodvie.CacheStore = (*RedisCacheStore)(nil)

// ──────────────────────────────────────────────
// Session backend
// ──────────────────────────────────────────────

// RedisSessionStore implements moodvie.SessionStore on Redis. Sessions are
// stored as JSON under "{prefix}:session:{id}"; SessionTTL gives idle
// conversations a natural expiry.
type RedisSessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a SessionStore backed by the given client.
func NewRedisSessionStore(client redis.UniversalClient, config ...RedisConfig) *RedisSessionStore {
	cfg := RedisConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg.defaults()
	return &RedisSessionStore{client: client, prefix: cfg.Prefix, ttl: cfg.SessionTTL}
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*moodvie.Session, bool, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &moodvie.StoreError{Op: "session.get", Err: err}
	}
	var sess moodvie.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, false, &moodvie.StoreError{Op: "session.decode", Err: err}
	}
	if sess.Likes == nil {
		sess.Likes = make(map[string]int)
	}
	if sess.Dislikes == nil {
		sess.Dislikes = make(map[string]int)
	}
	return &sess, true, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sess *moodvie.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return &moodvie.StoreError{Op: "session.encode", Err: err}
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return &moodvie.StoreError{Op: "session.put", Err: err}
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return &moodvie.StoreError{Op: "session.delete", Err: err}
	}
	return nil
}

var _ moodvie.SessionStore = (*RedisSessionStore)(nil)
