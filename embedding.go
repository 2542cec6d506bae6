package moodvie

import (
	"context"
	"log"
	"time"
)

// Embedder turns free text into a fixed-length vector.
// Implementations live in the provider subpackage: a local HTTP inference
// server ("local") and Gemini embeddings ("hosted"). Failures are reported
// as *EmbeddingError.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the fixed output length (384 in the reference deployment).
	Dimension() int
}

// EmbedFunc adapts a plain function to the Embedder interface.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func (f EmbedFunc) Dimension() int { return 0 }

// CachedEmbedder memoizes embeddings by a fingerprint of the normalized
// text only. Embeddings are filter-independent, so the same vector is
// reused across different genre filters.
type CachedEmbedder struct {
	inner Embedder
	cache *Cache
	ttl   time.Duration
}

// NewCachedEmbedder wraps an embedder with fingerprint-keyed caching.
func NewCachedEmbedder(inner Embedder, cache *Cache, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{inner: inner, cache: cache, ttl: ttl}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	fp := Fingerprint("embed", NormalizeText(text))

	var vec []float32
	hit, err := e.cache.GetJSON(ctx, fp, &vec)
	if err == nil && hit && len(vec) > 0 {
		return vec, nil
	}

	vec, err = e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetJSON(ctx, fp, vec, e.ttl); err != nil {
		log.Printf("[CachedEmbedder] cache write failed | fp=%s err=%v", fp, err)
	}
	return vec, nil
}

func (e *CachedEmbedder) Dimension() int { return e.inner.Dimension() }

var _ Embedder = (*CachedEmbedder)(nil)
