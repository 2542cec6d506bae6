package provider

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

// HTTPEmbedder adapts a local sentence-embedding inference server to
// moodvie.Embedder. The server takes {"text": "..."} and answers
// {"embedding": [...]}; the reference deployment runs a MiniLM model
// with 384-dimensional output.
type HTTPEmbedder struct {
	url       string
	dimension int
	client    *http.Client
}

// HTTPEmbedderConfig configures the adapter.
type HTTPEmbedderConfig struct {
	URL       string // embed endpoint, e.g. "http://localhost:8080/embed"
	Dimension int    // expected vector length, default 384
	Timeout   time.Duration
}

// NewHTTPEmbedder creates the adapter.
func NewHTTPEmbedder(cfg HTTPEmbedderConfig) (*HTTPEmbedder, error) {
	if cfg.URL == "" {
		return nil, &moodvie.ConfigurationError{Field: "EMBEDDER_URL", Reason: "required for the local embedder"}
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPEmbedder{
		url:       cfg.URL,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Embed posts the text and validates the returned vector length, so a
// misconfigured model surfaces here instead of as garbage similarities.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &moodvie.EmbeddingError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &moodvie.EmbeddingError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &moodvie.EmbeddingError{
			Err: fmt.Errorf("embedder status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200)),
		}
	}

	var parsed struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &moodvie.EmbeddingError{Err: err}
	}
	if len(parsed.Embedding) != e.dimension {
		return nil, &moodvie.EmbeddingError{
			Err: fmt.Errorf("embedder returned dimension %d, want %d", len(parsed.Embedding), e.dimension),
		}
	}
	return parsed.Embedding, nil
}

func (e *HTTPEmbedder) Dimension() int { return e.dimension }

var _ moodvie.Embedder = (*HTTPEmbedder)(nil)
