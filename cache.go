package moodvie

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ──────────────────────────────────────────────
// Cache layer — fingerprint-keyed memoization
// ──────────────────────────────────────────────
//
// A fingerprint is a pure function of (operation kind, normalized input,
// filter parameters): equal inputs always produce the same key, regardless
// of call order. Entries are immutable once stored. When two callers miss
// on the same fingerprint concurrently, each computes independently and the
// last completed write wins; a partially written entry is never observable.

// NormalizeText lowercases a query and collapses internal whitespace, so
// "  Lagi   CAPEK " and "lagi capek" share one fingerprint.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Fingerprint derives a deterministic cache key from an operation kind and
// its already-normalized parts. Parts are joined with a NUL separator so
// ("ab","c") and ("a","bc") cannot collide.
func Fingerprint(kind string, parts ...string) string {
	h := xxhash.New()
	h.WriteString(kind)
	for _, p := range parts {
		h.Write([]byte{0})
		h.WriteString(p)
	}
	return kind + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// CacheStore is the pluggable cache backend. The in-memory implementation
// below is the default; store.RedisCacheStore runs it on Redis.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache wraps a CacheStore with JSON encoding.
type Cache struct {
	store CacheStore
}

// NewCache creates a cache over the given backend,
// or an in-memory backend when store is nil.
func NewCache(store CacheStore) *Cache {
	if store == nil {
		store = NewMemoryCacheStore()
	}
	return &Cache{store: store}
}

// GetJSON looks up key and decodes the entry into out.
// Returns false on a miss or an expired entry.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		// Unreadable entry: drop it and report a miss.
		_ = c.store.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON stores v under key with the given freshness window.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, string(data), ttl)
}

// ──────────────────────────────────────────────
// In-memory backend
// ──────────────────────────────────────────────

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCacheStore is a thread-safe in-memory CacheStore with lazy expiry.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

// NewMemoryCacheStore creates an empty in-memory cache backend.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{
		entries: make(map[string]memoryCacheEntry),
		now:     time.Now,
	}
}

func (s *MemoryCacheStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryCacheStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = memoryCacheEntry{value: value, expiresAt: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryCacheStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live entries (expired ones may still count
// until their next Get).
func (s *MemoryCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ CacheStore = (*MemoryCacheStore)(nil)
