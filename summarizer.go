package moodvie

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
)

// ──────────────────────────────────────────────
// Review Summarizer — raw reviews to a one-line takeaway
// ──────────────────────────────────────────────

// maxReviewsPerSummary bounds the prompt size; extra reviews add little.
const maxReviewsPerSummary = 6

// maxReviewChars truncates a single review before it enters the prompt.
const maxReviewChars = 400

// ReviewSummarizer condenses a movie's raw reviews into one sentence.
// Summaries are best-effort decoration: a failed or slow summary never
// blocks a recommendation, the caller just shows the movie without it.
type ReviewSummarizer struct {
	llm     LLMProvider
	cache   *Cache
	ttl     time.Duration
	timeout time.Duration
	opts    GenerateOptions
}

// NewReviewSummarizer wires the summarizer. A nil cache store falls back
// to in-memory caching.
func NewReviewSummarizer(llm LLMProvider, cacheStore CacheStore, cfg Config) *ReviewSummarizer {
	return &ReviewSummarizer{
		llm:     llm,
		cache:   NewCache(cacheStore),
		ttl:     cfg.SummaryCacheTTL,
		timeout: cfg.SummaryTimeout,
		opts: GenerateOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   200,
		},
	}
}

// Summarize produces a one-line summary of a movie's reviews, cached by
// movie ID. Returns "" when the movie has no reviews. On LLM failure it
// falls back to a keyword sentiment line rather than returning an error.
func (s *ReviewSummarizer) Summarize(ctx context.Context, movie MovieRecord) string {
	reviews := splitReviews(movie.RawReviews)
	if len(reviews) == 0 {
		return ""
	}

	key := Fingerprint("summary", movie.ID)
	var cached string
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit && cached != "" {
		return cached
	}

	summary := s.summarizeLLM(ctx, movie.Title, reviews)
	if summary == "" {
		summary = sentimentLine(reviews)
	}
	if summary != "" {
		if err := s.cache.SetJSON(ctx, key, summary, s.ttl); err != nil {
			log.Printf("[Summarizer] cache write failed | movie=%s err=%v", movie.ID, err)
		}
	}
	return summary
}

func (s *ReviewSummarizer) summarizeLLM(ctx context.Context, title string, reviews []string) string {
	if s.llm == nil {
		return ""
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var b strings.Builder
	b.WriteString("Ringkas ulasan penonton berikut untuk film \"" + title + "\" ")
	b.WriteString("menjadi SATU kalimat bahasa Indonesia yang menangkap kesan umum. ")
	b.WriteString("Jawab hanya dengan kalimat ringkasan, tanpa tanda kutip.\n\n")
	for i, r := range reviews {
		if len(r) > maxReviewChars {
			r = r[:maxReviewChars]
		}
		b.WriteString("Ulasan " + string(rune('1'+i)) + ": " + r + "\n")
	}

	out, err := s.llm.Generate(ctx, b.String(), s.opts)
	if err != nil {
		log.Printf("[Summarizer] llm failed, using sentiment fallback | title=%s err=%v", title, err)
		return ""
	}
	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if out == "" {
		return ""
	}
	// Keep it to one line.
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		out = strings.TrimSpace(out[:idx])
	}
	return out
}

// splitReviews normalizes the catalog's raw review payload. Accepted shapes:
// a JSON array of strings, "|||"-separated entries, or plain newlines.
// At most maxReviewsPerSummary non-empty entries are kept.
func splitReviews(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			parts = arr
		}
	}
	if parts == nil {
		if strings.Contains(raw, "|||") {
			parts = strings.Split(raw, "|||")
		} else {
			parts = strings.Split(raw, "\n")
		}
	}

	out := make([]string, 0, maxReviewsPerSummary)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == maxReviewsPerSummary {
			break
		}
	}
	return out
}

var positiveWords = []string{
	"amazing", "great", "excellent", "love", "masterpiece", "beautiful",
	"bagus", "keren", "seru", "menyentuh", "luar biasa",
}

var negativeWords = []string{
	"boring", "bad", "terrible", "awful", "disappointing",
	"jelek", "membosankan", "buruk", "mengecewakan",
}

// sentimentLine is the zero-LLM fallback: count sentiment keywords across
// the reviews and emit a canned line.
func sentimentLine(reviews []string) string {
	var pos, neg int
	for _, r := range reviews {
		lower := strings.ToLower(r)
		for _, w := range positiveWords {
			if strings.Contains(lower, w) {
				pos++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(lower, w) {
				neg++
			}
		}
	}
	switch {
	case pos > neg:
		return "Penonton umumnya memberikan ulasan positif untuk film ini."
	case neg > pos:
		return "Ulasan penonton untuk film ini cenderung beragam ke negatif."
	default:
		return "Ulasan penonton untuk film ini cukup beragam."
	}
}
