// Package provider contains the LLM and embedding adapters the engine runs
// on: Gemini via the official SDK, any OpenAI-compatible chat API (Groq,
// OpenAI), and a local HTTP embedding server.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

const defaultGeminiEmbedModel = "text-embedding-004"

// Gemini adapts the Google generative AI SDK to moodvie.LLMProvider and
// moodvie.Embedder.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	dimension  int
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	APIKey     string
	Model      string // e.g. "gemini-flash-latest"
	EmbedModel string // default "text-embedding-004"
	Dimension  int    // expected embedding length, 0 = accept any
}

// NewGemini creates the adapter. The client is shared between generation
// and embedding; call Close when done.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &moodvie.ConfigurationError{Field: "GOOGLE_API_KEY", Reason: "required for the gemini provider"}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-flash-latest"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultGeminiEmbedModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client:     client,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		dimension:  cfg.Dimension,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Close releases the underlying client.
func (g *Gemini) Close() error { return g.client.Close() }

// Generate sends one prompt and returns the concatenated text parts.
func (g *Gemini) Generate(ctx context.Context, prompt string, opts moodvie.GenerateOptions) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if opts.Temperature > 0 {
		temp := opts.Temperature
		model.GenerationConfig.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		maxTokens := int32(opts.MaxTokens)
		model.GenerationConfig.MaxOutputTokens = &maxTokens
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", g.wrapErr(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &moodvie.ProviderError{
			Provider: g.Name(),
			Kind:     moodvie.ProviderMalformed,
			Err:      errors.New("response had no candidates"),
		}
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", &moodvie.ProviderError{
			Provider: g.Name(),
			Kind:     moodvie.ProviderMalformed,
			Err:      errors.New("response contained no text parts"),
		}
	}
	return out.String(), nil
}

// Embed returns the embedding vector for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embedModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &moodvie.EmbeddingError{Err: g.wrapErr(err)}
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, &moodvie.EmbeddingError{Err: errors.New("gemini returned no embedding values")}
	}
	if g.dimension > 0 && len(res.Embedding.Values) != g.dimension {
		return nil, &moodvie.EmbeddingError{
			Err: fmt.Errorf("gemini embedding dimension %d, want %d", len(res.Embedding.Values), g.dimension),
		}
	}
	return res.Embedding.Values, nil
}

func (g *Gemini) Dimension() int { return g.dimension }

// wrapErr classifies SDK errors into the engine's provider error kinds.
func (g *Gemini) wrapErr(err error) error {
	kind := moodvie.ProviderMalformed
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = moodvie.ProviderTimeout
	case errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code == 403):
		kind = moodvie.ProviderQuota
	}
	return &moodvie.ProviderError{Provider: g.Name(), Kind: kind, Err: err}
}

var (
	_ moodvie.LLMProvider = (*Gemini)(nil)
	_ moodvie.Embedder    = (*Gemini)(nil)
)
