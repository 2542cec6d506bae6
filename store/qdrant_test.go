package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// ══════════════════════════════════════════════
// QdrantStore tests
// ══════════════════════════════════════════════

func qdrantSearchResponse() string {
	return `{"result": [
		{"id": "1", "score": 0.95, "payload": {"id": "1", "title": "Up", "genre_ids": [16], "vote_average": 8.2, "popularity": 40.5}},
		{"id": "2", "score": 0.90, "payload": {"id": "2", "title": "Coco", "genre_ids": [16, 10751], "vote_average": 8.4}}
	]}`
}

func TestQdrantStore_Query(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(qdrantSearchResponse()))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL, Collection: "moodviedb"})
	hits, err := q.Query(context.Background(), []float32{0.1, 0.2}, moodvie.SearchFilter{
		GenreIDs:       []int{16, 35},
		MinVoteAverage: 6.0,
	}, 15, 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if gotPath != "/collections/moodviedb/points/search" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["limit"].(float64) != 15 || gotBody["offset"].(float64) != 5 {
		t.Fatalf("limit/offset not forwarded: %v", gotBody)
	}
	if gotBody["filter"] == nil {
		t.Fatal("filter should be present")
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Movie.Title != "Up" || hits[0].Similarity != 0.95 {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Movie.GenreIDs[1] != 10751 {
		t.Fatalf("payload genres not decoded: %+v", hits[1].Movie)
	}
}

func TestQdrantStore_QueryNoFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			t.Error("empty filter should be omitted")
		}
		w.Write([]byte(`{"result": []}`))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL})
	hits, err := q.Query(context.Background(), []float32{0.1}, moodvie.SearchFilter{}, 5, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestQdrantStore_QueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL})
	_, err := q.Query(context.Background(), []float32{0.1}, moodvie.SearchFilter{}, 5, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	var storeErr *moodvie.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %T", err)
	}
	if storeErr.Op != "qdrant.search" {
		t.Fatalf("unexpected op: %s", storeErr.Op)
	}
}

func TestQdrantStore_APIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("missing api-key header")
		}
		w.Write([]byte(`{"result": []}`))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL, APIKey: "secret"})
	q.Query(context.Background(), []float32{0.1}, moodvie.SearchFilter{}, 5, 0)
}

func TestQdrantStore_FetchByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/moodviedb/points/scroll" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"result": {"points": [
			{"id": "1", "payload": {"id": "1", "title": "Up", "genre_ids": [16]}}
		]}}`))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL})
	movie, ok, err := q.FetchByTitle(context.Background(), "  UP ")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if movie.Title != "Up" {
		t.Fatalf("unexpected movie: %+v", movie)
	}
}

func TestQdrantStore_FetchByTitleMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"points": []}}`))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL})
	_, ok, err := q.FetchByTitle(context.Background(), "Nonexistent")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestQdrantStore_Upsert(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"result": {}}`))
	}))
	defer srv.Close()

	q := NewQdrantStore(QdrantConfig{BaseURL: srv.URL})
	err := q.Upsert(context.Background(), moodvie.MovieRecord{
		ID: "1", Title: "Up", GenreIDs: []int{16},
	}, []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	points := gotBody["points"].([]interface{})
	payload := points[0].(map[string]interface{})["payload"].(map[string]interface{})
	if payload["title_lc"] != "up" {
		t.Fatalf("lowercased title should be written for lookups: %v", payload)
	}
}
