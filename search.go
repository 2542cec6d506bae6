package moodvie

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ──────────────────────────────────────────────
// Search Engine — semantic retrieval with fingerprint caching
// ──────────────────────────────────────────────

// Recommendation is one ranked movie in a result set. Similarity comes from
// the vector store, FinalScore adds the preference bias, Rank is 1-based
// within its set. Summary is filled best-effort by the assembler.
type Recommendation struct {
	Movie      MovieRecord `json:"movie"`
	Similarity float64     `json:"similarity"`
	FinalScore float64     `json:"final_score"`
	Rank       int         `json:"rank"`
	Summary    string      `json:"summary,omitempty"`
}

// SearchRequest describes one retrieval call. Genres are display names;
// unknown names are dropped during translation. Offset skips already-shown
// results for "show me more"; ExcludeIDs drops movies the session has
// already recommended so later rounds stay fresh.
type SearchRequest struct {
	Query          string
	Genres         []string
	MinVoteAverage float64
	K              int
	Offset         int
	ExcludeIDs     []string
}

// fingerprint derives the deterministic cache key for this request.
// Two requests differing only in query whitespace or casing share a key;
// any change to filters, K, offset or exclusions produces a distinct one.
func (r SearchRequest) fingerprint() string {
	ids := GenreNamesToIDs(r.Genres)
	sort.Ints(ids)
	idParts := make([]string, len(ids))
	for i, id := range ids {
		idParts[i] = strconv.Itoa(id)
	}
	excluded := append([]string(nil), r.ExcludeIDs...)
	sort.Strings(excluded)
	return Fingerprint("search",
		NormalizeText(r.Query),
		strings.Join(idParts, ","),
		strconv.FormatFloat(r.MinVoteAverage, 'f', -1, 64),
		strconv.Itoa(r.K),
		strconv.Itoa(r.Offset),
		strings.Join(excluded, ","),
	)
}

// SearchEngine turns a query into ranked candidates: embed, filter, fetch,
// dedupe. Results are cached by fingerprint so the same conversational ask
// never pays for the vector search twice within the freshness window.
type SearchEngine struct {
	embedder  Embedder
	vectors   VectorStore
	cache     *Cache
	cacheTTL  time.Duration
	overFetch int
}

// NewSearchEngine wires the search pipeline. A nil cache store falls back
// to in-memory caching. overFetch multiplies K on the raw vector query so
// deduplication still leaves a full page.
func NewSearchEngine(embedder Embedder, vectors VectorStore, cacheStore CacheStore, cfg Config) *SearchEngine {
	overFetch := cfg.OverFetchFactor
	if overFetch < 1 {
		overFetch = 1
	}
	return &SearchEngine{
		embedder:  NewCachedEmbedder(embedder, NewCache(cacheStore), cfg.EmbeddingCacheTTL),
		vectors:   vectors,
		cache:     NewCache(cacheStore),
		cacheTTL:  cfg.SearchCacheTTL,
		overFetch: overFetch,
	}
}

// Search runs one retrieval. Cache hits short-circuit the whole pipeline.
// Embedding or vector-store failures surface as *SearchUnavailableError so
// the conversation layer can degrade instead of crash.
func (e *SearchEngine) Search(ctx context.Context, req SearchRequest) ([]Recommendation, error) {
	if req.K <= 0 {
		return nil, nil
	}

	key := req.fingerprint()
	var cached []Recommendation
	if hit, err := e.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		log.Printf("[SearchEngine] cache hit | key=%s results=%d", key, len(cached))
		return cached, nil
	}

	vector, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, &SearchUnavailableError{Err: err}
	}

	filter := SearchFilter{
		GenreIDs:       GenreNamesToIDs(req.Genres),
		MinVoteAverage: req.MinVoteAverage,
	}
	hits, err := e.vectors.Query(ctx, vector, filter, req.K*e.overFetch, req.Offset)
	if err != nil {
		return nil, &SearchUnavailableError{Err: err}
	}

	exclude := make(map[string]bool, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		exclude[id] = true
	}
	results := dedupeHits(hits, req.K, exclude)
	if err := e.cache.SetJSON(ctx, key, results, e.cacheTTL); err != nil {
		// Caching is an optimization; a write failure only costs latency.
		log.Printf("[SearchEngine] cache write failed | key=%s err=%v", key, err)
	}
	log.Printf("[SearchEngine] search done | key=%s raw=%d kept=%d", key, len(hits), len(results))
	return results, nil
}

// dedupeHits keeps the first (highest-similarity) hit per movie ID, skips
// excluded IDs and assigns provisional ranks. The store already orders by
// similarity.
func dedupeHits(hits []MovieHit, k int, exclude map[string]bool) []Recommendation {
	seen := make(map[string]bool, len(hits))
	out := make([]Recommendation, 0, k)
	for _, h := range hits {
		if h.Movie.ID == "" || seen[h.Movie.ID] || exclude[h.Movie.ID] {
			continue
		}
		seen[h.Movie.ID] = true
		out = append(out, Recommendation{
			Movie:      h.Movie,
			Similarity: h.Similarity,
			FinalScore: h.Similarity,
			Rank:       len(out) + 1,
		})
		if len(out) == k {
			break
		}
	}
	return out
}
