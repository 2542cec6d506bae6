package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// QdrantStore implements moodvie.VectorStore using Qdrant's REST API.
// One collection holds the whole movie catalog: point vector = embedded
// overview, point payload = the MovieRecord fields.
type QdrantStore struct {
	baseURL    string
	collection string
	apiKey     string
	client     *http.Client
}

// QdrantConfig configures the Qdrant store.
type QdrantConfig struct {
	BaseURL    string        // e.g. "http://localhost:6333"
	Collection string        // collection name, default "moodviedb"
	APIKey     string        // optional API key
	Timeout    time.Duration // HTTP client timeout, default 15s
}

// NewQdrantStore creates a VectorStore backed by Qdrant.
func NewQdrantStore(config QdrantConfig) *QdrantStore {
	if config.Collection == "" {
		config.Collection = "moodviedb"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &QdrantStore{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		collection: config.Collection,
		apiKey:     config.APIKey,
		client:     &http.Client{Timeout: config.Timeout},
	}
}

func (q *QdrantStore) url(path string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.baseURL, q.collection, path)
}

func (q *QdrantStore) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("qdrant %s %s: %d %s", method, url, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// qdrantFilter builds the payload filter for a similarity query: any of the
// requested genre IDs, plus an optional minimum rating.
func qdrantFilter(f moodvie.SearchFilter) map[string]interface{} {
	var must []map[string]interface{}
	if len(f.GenreIDs) > 0 {
		must = append(must, map[string]interface{}{
			"key":   "genre_ids",
			"match": map[string]interface{}{"any": f.GenreIDs},
		})
	}
	if f.MinVoteAverage > 0 {
		must = append(must, map[string]interface{}{
			"key":   "vote_average",
			"range": map[string]interface{}{"gte": f.MinVoteAverage},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]interface{}{"must": must}
}

type qdrantPoint struct {
	ID      interface{}     `json:"id"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
}

func (p qdrantPoint) toHit() (moodvie.MovieHit, error) {
	var movie moodvie.MovieRecord
	if len(p.Payload) > 0 {
		if err := json.Unmarshal(p.Payload, &movie); err != nil {
			return moodvie.MovieHit{}, err
		}
	}
	if movie.ID == "" {
		movie.ID = fmt.Sprintf("%v", p.ID)
	}
	return moodvie.MovieHit{Movie: movie, Similarity: p.Score}, nil
}

// Query runs a filtered similarity search, ordered by score descending.
func (q *QdrantStore) Query(ctx context.Context, vector []float32, filter moodvie.SearchFilter, limit, offset int) ([]moodvie.MovieHit, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"offset":       offset,
		"with_payload": true,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	respBody, err := q.doRequest(ctx, "POST", q.url("/points/search"), body)
	if err != nil {
		return nil, &moodvie.StoreError{Op: "qdrant.search", Err: err}
	}

	var resp struct {
		Result []qdrantPoint `json:"result"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &moodvie.StoreError{Op: "qdrant.decode", Err: err}
	}

	hits := make([]moodvie.MovieHit, 0, len(resp.Result))
	for _, p := range resp.Result {
		h, err := p.toHit()
		if err != nil {
			return nil, &moodvie.StoreError{Op: "qdrant.decode", Err: err}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// FetchByTitle scans the collection for an exact title match. Qdrant has no
// case-insensitive match, so the payload carries a lowercased "title_lc"
// field written at ingest time.
func (q *QdrantStore) FetchByTitle(ctx context.Context, title string) (*moodvie.MovieRecord, bool, error) {
	body := map[string]interface{}{
		"limit":        1,
		"with_payload": true,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "title_lc",
					"match": map[string]interface{}{"value": strings.ToLower(strings.TrimSpace(title))},
				},
			},
		},
	}

	respBody, err := q.doRequest(ctx, "POST", q.url("/points/scroll"), body)
	if err != nil {
		return nil, false, &moodvie.StoreError{Op: "qdrant.scroll", Err: err}
	}

	var resp struct {
		Result struct {
			Points []qdrantPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, &moodvie.StoreError{Op: "qdrant.decode", Err: err}
	}
	if len(resp.Result.Points) == 0 {
		return nil, false, nil
	}
	hit, err := resp.Result.Points[0].toHit()
	if err != nil {
		return nil, false, &moodvie.StoreError{Op: "qdrant.decode", Err: err}
	}
	return &hit.Movie, true, nil
}

// Upsert writes one movie with its embedding, used by catalog ingest.
func (q *QdrantStore) Upsert(ctx context.Context, movie moodvie.MovieRecord, embedding []float32) error {
	payload := map[string]interface{}{
		"id":           movie.ID,
		"title":        movie.Title,
		"title_lc":     strings.ToLower(movie.Title),
		"overview":     movie.Overview,
		"genre_ids":    movie.GenreIDs,
		"vote_average": movie.VoteAverage,
		"vote_count":   movie.VoteCount,
		"popularity":   movie.Popularity,
		"release_date": movie.ReleaseDate,
	}
	if movie.RawReviews != "" {
		payload["raw_reviews"] = movie.RawReviews
	}

	body := map[string]interface{}{
		"points": []map[string]interface{}{
			{
				"id":      movie.ID,
				"vector":  embedding,
				"payload": payload,
			},
		},
	}
	if _, err := q.doRequest(ctx, "PUT", q.url("/points"), body); err != nil {
		return &moodvie.StoreError{Op: "qdrant.upsert", Err: err}
	}
	return nil
}

// Compile-time interface check.
var _ moodvie.VectorStore = (*QdrantStore)(nil)
