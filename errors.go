package moodvie

import "fmt"

// ──────────────────────────────────────────────
// Error kinds — one type per component boundary
// ──────────────────────────────────────────────
//
// Adapter failures are caught at the component that invoked them (mood
// analyzer, search engine, assembler) and converted into a degraded
// conversational reply or a bounded retry. ConfigurationError is the only
// class that may abort the process, and only during startup.

// ProviderErrorKind classifies LLM adapter failures.
type ProviderErrorKind string

const (
	ProviderTimeout   ProviderErrorKind = "timeout"
	ProviderQuota     ProviderErrorKind = "quota"
	ProviderMalformed ProviderErrorKind = "malformed"
)

// ProviderError is a generic LLM adapter failure.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MoodInferenceError means LLM mood classification failed or returned
// output that could not be validated, after the bounded retry.
type MoodInferenceError struct {
	Err error
}

func (e *MoodInferenceError) Error() string {
	return fmt.Sprintf("mood inference failed: %v", e.Err)
}

func (e *MoodInferenceError) Unwrap() error { return e.Err }

// EmbeddingError means the embedding adapter failed to produce a vector.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreError is a raw vector-store failure (unreachable, timeout, bad reply).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SearchUnavailableError is what the search engine surfaces when the vector
// store or the embedding adapter is unusable. The context manager treats it
// as non-fatal and answers with a degraded reply.
type SearchUnavailableError struct {
	Err error
}

func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("search unavailable: %v", e.Err)
}

func (e *SearchUnavailableError) Unwrap() error { return e.Err }

// ConfigurationError means a required credential or setting is missing.
// Fatal at startup only, never raised mid-conversation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}
