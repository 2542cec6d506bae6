package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// ══════════════════════════════════════════════
// RedisCacheStore tests
// ══════════════════════════════════════════════

func TestRedisCacheStore_SetGet(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisCacheStore(client)
	ctx := context.Background()

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if val != "v" {
		t.Fatalf("expected v, got %s", val)
	}
}

func TestRedisCacheStore_Miss(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisCacheStore(client)

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestRedisCacheStore_TTLExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisCacheStore(client)
	ctx := context.Background()

	s.Set(ctx, "k", "v", time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expired entry should be a miss")
	}
}

func TestRedisCacheStore_Delete(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisCacheStore(client)
	ctx := context.Background()

	s.Set(ctx, "k", "v", 0)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("deleted entry should be gone")
	}
}

func TestRedisCacheStore_Namespaced(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisCacheStore(client, RedisConfig{Prefix: "app"})
	ctx := context.Background()

	s.Set(ctx, "k", "v", 0)
	if !mr.Exists("app:cache:k") {
		t.Fatal("keys should be namespaced under the prefix")
	}
}

// ══════════════════════════════════════════════
// RedisSessionStore tests
// ══════════════════════════════════════════════

func TestRedisSessionStore_RoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisSessionStore(client)
	ctx := context.Background()

	sess := moodvie.NewSession("s1")
	sess.State = moodvie.StateRecommending
	sess.RecordFeedback([]string{"Comedy"}, true)
	sess.ConfirmedGenres = []string{"Comedy"}

	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.State != moodvie.StateRecommending {
		t.Fatalf("unexpected state: %s", got.State)
	}
	if got.Likes["comedy"] != 1 {
		t.Fatalf("preferences should round-trip: %v", got.Likes)
	}
	if len(got.ConfirmedGenres) != 1 {
		t.Fatalf("slots should round-trip: %v", got.ConfirmedGenres)
	}
}

func TestRedisSessionStore_Miss(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisSessionStore(client)

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStore_InitializesCounters(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisSessionStore(client)

	// A session written by an older build may lack the counter maps.
	mr.Set("moodvie:session:old", `{"id":"old","state":"IDLE"}`)

	got, ok, err := s.Get(context.Background(), "old")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Likes == nil || got.Dislikes == nil {
		t.Fatal("counter maps should be initialized on load")
	}
}

func TestRedisSessionStore_IdleExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisSessionStore(client, RedisConfig{SessionTTL: time.Hour})
	ctx := context.Background()

	s.Put(ctx, moodvie.NewSession("s1"))
	mr.FastForward(2 * time.Hour)

	if _, ok, _ := s.Get(ctx, "s1"); ok {
		t.Fatal("idle session should expire")
	}
}

func TestRedisSessionStore_Delete(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewRedisSessionStore(client)
	ctx := context.Background()

	s.Put(ctx, moodvie.NewSession("s1"))
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "s1"); ok {
		t.Fatal("deleted session should be gone")
	}
}

func TestRedisSessionStore_CorruptEntryErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisSessionStore(client)

	mr.Set("moodvie:session:bad", "{not json")
	_, _, err := s.Get(context.Background(), "bad")
	if err == nil {
		t.Fatal("corrupt session should error")
	}
}
