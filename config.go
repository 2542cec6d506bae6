package moodvie

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the recommendation engine.
//
// Usage:
//
//	cfg, err := moodvie.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err) // ConfigurationError, startup only
//	}
type Config struct {
	// LLM provider settings
	Provider    string // "gemini", "groq" or "openai"
	ModelName   string
	Temperature float32
	MaxTokens   int

	// API keys, one per provider
	GoogleAPIKey string
	GroqAPIKey   string
	OpenAIAPIKey string

	// Vector store
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Optional Redis backend for cache and sessions
	RedisAddr string

	// Embedding adapter: "local" (HTTP inference server) or "hosted" (Gemini)
	EmbedderKind string
	EmbedderURL  string
	EmbeddingDim int

	// Retrieval tuning
	ResultSize      int // K, recommendations per search
	OverFetchFactor int // request OverFetchFactor*K candidates from the store
	MinVoteAverage  float64

	// Conversation tuning
	ConfirmTopN       int // genres shown in a confirmation prompt
	MaxConfirmRetries int // rejections before falling back to the top genre
	MoodFallback      bool
	MaxHistoryTurns   int // recent turns injected into the mood prompt

	// Preference bias weight (alpha)
	BiasWeight float64

	// Cache freshness windows
	SearchCacheTTL    time.Duration
	EmbeddingCacheTTL time.Duration
	SummaryCacheTTL   time.Duration

	// Per-call deadlines
	LLMTimeout     time.Duration
	SearchTimeout  time.Duration
	SummaryTimeout time.Duration
}

// DefaultConfig returns production defaults. API keys and endpoints are
// left empty and must be supplied by the caller or the environment.
func DefaultConfig() Config {
	return Config{
		Provider:          "gemini",
		ModelName:         "gemini-flash-latest",
		Temperature:       0.3,
		MaxTokens:         2000,
		QdrantCollection:  "moodviedb",
		EmbedderKind:      "local",
		EmbeddingDim:      384,
		ResultSize:        5,
		OverFetchFactor:   3,
		ConfirmTopN:       3,
		MaxConfirmRetries: 3,
		MoodFallback:      true,
		MaxHistoryTurns:   10,
		BiasWeight:        0.1,
		SearchCacheTTL:    time.Hour,
		EmbeddingCacheTTL: 24 * time.Hour,
		SummaryCacheTTL:   2 * time.Hour,
		LLMTimeout:        15 * time.Second,
		SearchTimeout:     15 * time.Second,
		SummaryTimeout:    4 * time.Second,
	}
}

// LoadConfigFromEnv builds a Config from environment variables, loading the
// given .env files first (default ".env", missing files are ignored).
func LoadConfigFromEnv(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f) // absence is fine, real env wins
	}

	cfg := DefaultConfig()
	cfg.Provider = envStr("LLM_PROVIDER", cfg.Provider)
	cfg.ModelName = envStr("MODEL_NAME", cfg.ModelName)
	cfg.Temperature = float32(envFloat("TEMPERATURE", float64(cfg.Temperature)))
	cfg.MaxTokens = envInt("MAX_TOKENS", cfg.MaxTokens)

	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	cfg.QdrantURL = os.Getenv("QDRANT_URL")
	cfg.QdrantAPIKey = os.Getenv("QDRANT_API_KEY")
	cfg.QdrantCollection = envStr("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.EmbedderKind = envStr("EMBEDDER_KIND", cfg.EmbedderKind)
	cfg.EmbedderURL = os.Getenv("EMBEDDER_URL")
	cfg.EmbeddingDim = envInt("EMBEDDING_DIM", cfg.EmbeddingDim)

	cfg.ResultSize = envInt("RESULT_SIZE", cfg.ResultSize)
	cfg.OverFetchFactor = envInt("OVERFETCH_FACTOR", cfg.OverFetchFactor)
	cfg.MaxConfirmRetries = envInt("MAX_CONFIRM_RETRIES", cfg.MaxConfirmRetries)
	cfg.BiasWeight = envFloat("BIAS_WEIGHT", cfg.BiasWeight)
	if ttl := envInt("CACHE_TTL", 0); ttl > 0 {
		cfg.SearchCacheTTL = time.Duration(ttl) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// APIKey returns the key for the configured LLM provider.
func (c Config) APIKey() string {
	switch c.Provider {
	case "gemini":
		return c.GoogleAPIKey
	case "groq":
		return c.GroqAPIKey
	case "openai":
		return c.OpenAIAPIKey
	}
	return ""
}

// Validate checks the settings that have no workable default.
// It does not require credentials: callers wiring their own adapters
// (or test fakes) may run without any key.
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini", "groq", "openai":
	default:
		return &ConfigurationError{Field: "LLM_PROVIDER", Reason: "must be gemini, groq or openai"}
	}
	switch c.EmbedderKind {
	case "local", "hosted":
	default:
		return &ConfigurationError{Field: "EMBEDDER_KIND", Reason: "must be local or hosted"}
	}
	if c.ResultSize <= 0 {
		return &ConfigurationError{Field: "RESULT_SIZE", Reason: "must be positive"}
	}
	if c.OverFetchFactor <= 0 {
		return &ConfigurationError{Field: "OVERFETCH_FACTOR", Reason: "must be positive"}
	}
	if c.MaxConfirmRetries < 0 {
		return &ConfigurationError{Field: "MAX_CONFIRM_RETRIES", Reason: "must not be negative"}
	}
	if c.EmbeddingDim <= 0 {
		return &ConfigurationError{Field: "EMBEDDING_DIM", Reason: "must be positive"}
	}
	return nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
