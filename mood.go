package moodvie

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
)

// ──────────────────────────────────────────────
// Mood Analyzer — free text to emotional state + genre candidates
// ──────────────────────────────────────────────

// GenreCandidate is a catalog genre proposed for a mood, with a confidence
// in [0,1]. Candidates are unique per analysis and ordered by confidence
// descending; that ordering drives the default confirmation order.
type GenreCandidate struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
}

// MoodAnalysis is the validated result of mood inference for one utterance.
// Never mutated after creation.
type MoodAnalysis struct {
	Mood        string           `json:"mood"`
	Rationale   string           `json:"rationale"`
	EmotionType string           `json:"emotion_type"` // positive/neutral/negative
	Intensity   int              `json:"intensity"`    // 0-100
	Genres      []GenreCandidate `json:"genres"`
}

// TopGenres returns up to n candidate genre names, best first.
func (a *MoodAnalysis) TopGenres(n int) []string {
	if n > len(a.Genres) {
		n = len(a.Genres)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = a.Genres[i].Genre
	}
	return out
}

// DiscountConfidences scales every candidate's confidence by factor,
// keeping the ordering. Used when the user rejects a proposal: the original
// rationale is retained instead of re-querying the mood from scratch.
func (a *MoodAnalysis) DiscountConfidences(factor float64) {
	for i := range a.Genres {
		a.Genres[i].Confidence *= factor
	}
}

// MoodAnalyzer classifies an utterance via the LLM adapter and validates
// the structured output against the genre taxonomy.
type MoodAnalyzer struct {
	llm  LLMProvider
	opts GenerateOptions
}

// NewMoodAnalyzer creates an analyzer using the config's model parameters.
func NewMoodAnalyzer(llm LLMProvider, cfg Config) *MoodAnalyzer {
	return &MoodAnalyzer{
		llm: llm,
		opts: GenerateOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}
}

// rawMoodResponse is the JSON shape the instruction contract asks for.
type rawMoodResponse struct {
	Mood        string  `json:"mood"`
	Rationale   string  `json:"rationale"`
	EmotionType string  `json:"emotion_type"`
	Intensity   float64 `json:"intensity"`
	Genres      []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"genres"`
}

// Analyze infers a MoodAnalysis from text, with up to maxHistory recent
// turns for disambiguation ("still feeling that way"). One automatic retry
// with a stricter prompt on malformed output, then *MoodInferenceError.
func (a *MoodAnalyzer) Analyze(ctx context.Context, text string, history []Turn) (*MoodAnalysis, error) {
	if a.llm == nil {
		return nil, &MoodInferenceError{Err: fmt.Errorf("no LLM provider configured")}
	}

	prompt := a.buildPrompt(text, history, false)
	result, err := a.tryOnce(ctx, prompt)
	if err == nil {
		return result, nil
	}
	log.Printf("[MoodAnalyzer] first attempt failed, retrying strict | err=%v", err)

	prompt = a.buildPrompt(text, history, true)
	result, retryErr := a.tryOnce(ctx, prompt)
	if retryErr == nil {
		return result, nil
	}
	return nil, &MoodInferenceError{Err: retryErr}
}

func (a *MoodAnalyzer) tryOnce(ctx context.Context, prompt string) (*MoodAnalysis, error) {
	raw, err := a.llm.Generate(ctx, prompt, a.opts)
	if err != nil {
		return nil, err
	}
	return parseMoodResponse(raw)
}

func (a *MoodAnalyzer) buildPrompt(text string, history []Turn, strict bool) string {
	var b strings.Builder
	b.WriteString("Kamu adalah asisten rekomendasi film. Analisis mood dari teks pengguna ")
	b.WriteString("dan kembalikan HANYA JSON dengan format berikut, tanpa markdown:\n\n")
	b.WriteString(`{"mood": "label singkat", "rationale": "ringkasan empati 1-2 kalimat", `)
	b.WriteString(`"emotion_type": "positive|neutral|negative", "intensity": 0-100, `)
	b.WriteString(`"genres": [{"name": "Genre", "confidence": 0.0-1.0}]}` + "\n\n")
	b.WriteString("Genre yang diperbolehkan: ")
	b.WriteString(strings.Join(RecommendableGenres, ", "))
	b.WriteString("\nUsulkan 2-4 genre, confidence menurun.\n")

	if len(history) > 0 {
		b.WriteString("\nKonteks percakapan sebelumnya:\n")
		for _, t := range history {
			line := t.UserText
			if len(line) > 300 {
				line = line[:300]
			}
			b.WriteString("User: " + line + "\n")
			if t.Mood != nil {
				b.WriteString("Mood terdeteksi: " + t.Mood.Mood + "\n")
			}
		}
	}

	b.WriteString("\nTeks pengguna saat ini: " + text + "\n")
	if strict {
		b.WriteString("\nPENTING: jawaban sebelumnya tidak valid. Kembalikan HANYA objek JSON, ")
		b.WriteString("tanpa teks lain, tanpa code fence, field persis seperti format di atas.")
	}
	return b.String()
}

// parseMoodResponse decodes and validates the LLM output: code fences are
// stripped, unknown genres are rejected, confidences clamped to [0,1],
// duplicates removed, ordering fixed to confidence descending.
func parseMoodResponse(raw string) (*MoodAnalysis, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Tolerate prose around the object: take the outermost braces.
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var resp rawMoodResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("malformed mood response: %w", err)
	}
	if resp.Mood == "" {
		return nil, fmt.Errorf("mood response missing mood label")
	}

	seen := make(map[string]bool)
	genres := make([]GenreCandidate, 0, len(resp.Genres))
	for _, g := range resp.Genres {
		key := NormalizeGenre(g.Name)
		if !IsValidGenre(g.Name) || seen[key] {
			continue
		}
		seen[key] = true
		genres = append(genres, GenreCandidate{
			Genre:      titleCase(key),
			Confidence: clamp01(g.Confidence),
		})
	}
	if len(genres) == 0 {
		return nil, fmt.Errorf("mood response contained no valid genres")
	}
	sort.SliceStable(genres, func(i, j int) bool {
		return genres[i].Confidence > genres[j].Confidence
	})

	intensity := int(resp.Intensity)
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 100 {
		intensity = 100
	}
	emotion := resp.EmotionType
	switch emotion {
	case "positive", "neutral", "negative":
	default:
		emotion = "neutral"
	}

	return &MoodAnalysis{
		Mood:        resp.Mood,
		Rationale:   strings.TrimSpace(resp.Rationale),
		EmotionType: emotion,
		Intensity:   intensity,
		Genres:      genres,
	}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ──────────────────────────────────────────────
// Keyword fallback — rule-based analysis, zero LLM cost
// ──────────────────────────────────────────────

type fallbackPattern struct {
	keywords  []string
	mood      string
	emotion   string
	intensity int
	rationale string
	genres    []string
}

// Bilingual (Indonesian + English) patterns, checked in order.
var fallbackPatterns = []fallbackPattern{
	{
		keywords:  []string{"sakit", "pusing", "demam", "flu", "sick"},
		mood:      "sakit", emotion: "negative", intensity: 70,
		rationale: "Semoga lekas sembuh ya! Istirahat yang cukup dan jaga kesehatan.",
		genres:    []string{"Comedy", "Animation", "Family"},
	},
	{
		keywords:  []string{"capek", "lelah", "tired", "exhausted"},
		mood:      "tired/low-energy", emotion: "negative", intensity: 65,
		rationale: "Sepertinya butuh istirahat nih. Yuk santai dengan film ringan!",
		genres:    []string{"Comedy", "Family", "Animation"},
	},
	{
		keywords:  []string{"senang", "happy", "gembira", "excited"},
		mood:      "senang", emotion: "positive", intensity: 80,
		rationale: "Mood bagus nih, cocok nonton film seru!",
		genres:    []string{"Adventure", "Comedy", "Action"},
	},
	{
		keywords:  []string{"sedih", "sad", "galau", "down"},
		mood:      "sedih", emotion: "negative", intensity: 60,
		rationale: "Ada yang mengganjal ya? Film yang tepat bisa bantu memperbaiki mood.",
		genres:    []string{"Comedy", "Animation", "Drama"},
	},
	{
		keywords:  []string{"bosan", "bored", "gabut"},
		mood:      "bosan", emotion: "neutral", intensity: 55,
		rationale: "Lagi gabut ya? Ada banyak film seru buat mengisi waktu.",
		genres:    []string{"Adventure", "Thriller", "Mystery"},
	},
}

// FallbackMoodAnalysis is the rule-based analyzer used as a degraded path
// when LLM inference is unavailable. Confidences step down from 0.9.
func FallbackMoodAnalysis(text string) *MoodAnalysis {
	lower := strings.ToLower(text)
	for _, p := range fallbackPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return fallbackResult(p)
			}
		}
	}
	return fallbackResult(fallbackPattern{
		mood: "netral", emotion: "neutral", intensity: 50,
		rationale: "Baik, saya siap membantu menemukan film yang cocok untukmu!",
		genres:    []string{"Comedy", "Drama", "Adventure"},
	})
}

func fallbackResult(p fallbackPattern) *MoodAnalysis {
	genres := make([]GenreCandidate, len(p.genres))
	for i, g := range p.genres {
		genres[i] = GenreCandidate{Genre: g, Confidence: 0.9 - 0.1*float64(i)}
	}
	return &MoodAnalysis{
		Mood:        p.mood,
		Rationale:   p.rationale,
		EmotionType: p.emotion,
		Intensity:   p.intensity,
		Genres:      genres,
	}
}
