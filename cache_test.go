package moodvie

import (
	"context"
	"testing"
	"time"
)

// ══════════════════════════════════════════════
// Fingerprint tests
// ══════════════════════════════════════════════

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("search", "lagi capek", "28,35", "0", "5", "0")
	b := Fingerprint("search", "lagi capek", "28,35", "0", "5", "0")
	if a != b {
		t.Fatalf("same inputs should share a fingerprint: %s vs %s", a, b)
	}
}

func TestFingerprint_DistinctOnFilterChange(t *testing.T) {
	a := Fingerprint("search", "lagi capek", "28,35")
	b := Fingerprint("search", "lagi capek", "28,36")
	if a == b {
		t.Fatal("different filters should not share a fingerprint")
	}
}

func TestFingerprint_SeparatorPreventsCollision(t *testing.T) {
	a := Fingerprint("search", "ab", "c")
	b := Fingerprint("search", "a", "bc")
	if a == b {
		t.Fatal("part boundaries must be part of the key")
	}
}

func TestFingerprint_KindPrefix(t *testing.T) {
	fp := Fingerprint("embed", "halo")
	if fp[:6] != "embed:" {
		t.Fatalf("fingerprint should carry its kind, got %s", fp)
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  Lagi   CAPEK \t banget "); got != "lagi capek banget" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalizeText_SharedFingerprint(t *testing.T) {
	a := Fingerprint("search", NormalizeText("  Lagi   CAPEK "))
	b := Fingerprint("search", NormalizeText("lagi capek"))
	if a != b {
		t.Fatal("normalized variants should share a fingerprint")
	}
}

// ══════════════════════════════════════════════
// MemoryCacheStore tests
// ══════════════════════════════════════════════

func TestMemoryCacheStore_SetGet(t *testing.T) {
	s := NewMemoryCacheStore()
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

func TestMemoryCacheStore_Miss(t *testing.T) {
	s := NewMemoryCacheStore()
	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestMemoryCacheStore_Expiry(t *testing.T) {
	s := NewMemoryCacheStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "k", "v", time.Minute)
	now = now.Add(2 * time.Minute)

	_, ok, _ := s.Get(ctx, "k")
	if ok {
		t.Fatal("expired entry should be a miss")
	}
	if s.Len() != 0 {
		t.Fatalf("expired entry should be dropped, len=%d", s.Len())
	}
}

func TestMemoryCacheStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryCacheStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "k", "v", 0)
	now = now.Add(1000 * time.Hour)

	_, ok, _ := s.Get(ctx, "k")
	if !ok {
		t.Fatal("zero-ttl entry should survive")
	}
}

func TestMemoryCacheStore_Overwrite(t *testing.T) {
	s := NewMemoryCacheStore()
	ctx := context.Background()
	s.Set(ctx, "k", "first", time.Minute)
	s.Set(ctx, "k", "second", time.Minute)

	val, _, _ := s.Get(ctx, "k")
	if val != "second" {
		t.Fatalf("last write should win, got %s", val)
	}
}

// ══════════════════════════════════════════════
// Cache JSON wrapper tests
// ══════════════════════════════════════════════

func TestCache_JSONRoundTrip(t *testing.T) {
	c := NewCache(nil)
	ctx := context.Background()

	in := []Recommendation{{Movie: MovieRecord{ID: "1", Title: "Up"}, Similarity: 0.9}}
	if err := c.SetJSON(ctx, "recs", in, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var out []Recommendation
	hit, err := c.GetJSON(ctx, "recs", &out)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if len(out) != 1 || out[0].Movie.Title != "Up" {
		t.Fatalf("unexpected decode: %+v", out)
	}
}

func TestCache_CorruptEntryBecomesMiss(t *testing.T) {
	backend := NewMemoryCacheStore()
	c := NewCache(backend)
	ctx := context.Background()

	backend.Set(ctx, "bad", "{not json", time.Minute)

	var out []Recommendation
	hit, err := c.GetJSON(ctx, "bad", &out)
	if err != nil {
		t.Fatalf("corrupt entry should not error: %v", err)
	}
	if hit {
		t.Fatal("corrupt entry should be a miss")
	}
	if _, ok, _ := backend.Get(ctx, "bad"); ok {
		t.Fatal("corrupt entry should be deleted")
	}
}
