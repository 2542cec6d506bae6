package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	moodvie "github.com/moodvielabs/moodvie-engine-go"
)

// OpenAICompatible adapts any chat-completions API that speaks the OpenAI
// wire format (OpenAI itself, Groq, local gateways) to moodvie.LLMProvider.
type OpenAICompatible struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OpenAIConfig configures the adapter.
type OpenAIConfig struct {
	Name    string // provider label for logs and errors, default "openai"
	BaseURL string // default "https://api.openai.com/v1"
	APIKey  string
	Model   string
	Timeout time.Duration // HTTP client timeout, default 30s
}

// NewOpenAICompatible creates the adapter.
func NewOpenAICompatible(cfg OpenAIConfig) (*OpenAICompatible, error) {
	if cfg.APIKey == "" {
		return nil, &moodvie.ConfigurationError{Field: "OPENAI_API_KEY", Reason: "required for the openai provider"}
	}
	if cfg.Model == "" {
		return nil, &moodvie.ConfigurationError{Field: "MODEL_NAME", Reason: "required for the openai provider"}
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAICompatible{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// NewGroq creates an adapter preset for Groq's OpenAI-compatible endpoint.
func NewGroq(apiKey, model string) (*OpenAICompatible, error) {
	return NewOpenAICompatible(OpenAIConfig{
		Name:    "groq",
		BaseURL: "https://api.groq.com/openai/v1",
		APIKey:  apiKey,
		Model:   model,
	})
}

func (p *OpenAICompatible) Name() string { return p.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends one prompt as a single user message.
func (p *OpenAICompatible) Generate(ctx context.Context, prompt string, opts moodvie.GenerateOptions) (string, error) {
	reqBody := chatRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		kind := moodvie.ProviderMalformed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = moodvie.ProviderTimeout
		}
		return "", &moodvie.ProviderError{Provider: p.name, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &moodvie.ProviderError{Provider: p.name, Kind: moodvie.ProviderMalformed, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		kind := moodvie.ProviderMalformed
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusForbidden, http.StatusPaymentRequired:
			kind = moodvie.ProviderQuota
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			kind = moodvie.ProviderTimeout
		}
		return "", &moodvie.ProviderError{
			Provider: p.name,
			Kind:     kind,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 300)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &moodvie.ProviderError{Provider: p.name, Kind: moodvie.ProviderMalformed, Err: err}
	}
	if parsed.Error != nil {
		return "", &moodvie.ProviderError{
			Provider: p.name,
			Kind:     moodvie.ProviderMalformed,
			Err:      errors.New(parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &moodvie.ProviderError{
			Provider: p.name,
			Kind:     moodvie.ProviderMalformed,
			Err:      errors.New("response had no choices"),
		}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ moodvie.LLMProvider = (*OpenAICompatible)(nil)
