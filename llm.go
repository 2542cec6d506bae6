package moodvie

import "context"

// GenerateOptions are per-call LLM parameters.
// Zero values mean "use the provider's configured defaults".
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// LLMProvider is the narrow contract to a language model backend.
// Implementations live in the provider subpackage (gemini, groq, openai);
// failures are reported as *ProviderError.
type LLMProvider interface {
	// Generate sends a prompt and returns the raw completion text.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Name identifies the provider in logs.
	Name() string
}

// GenerateFunc adapts a plain function to the LLMProvider interface.
// Handy for tests and for callers with an existing client.
type GenerateFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f(ctx, prompt, opts)
}

func (f GenerateFunc) Name() string { return "func" }
