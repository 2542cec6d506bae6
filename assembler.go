package moodvie

import (
	"context"
	"fmt"
	"strings"
)

// ──────────────────────────────────────────────
// Assembler — candidates to a presentable, biased result set
// ──────────────────────────────────────────────

// Assembler applies the preference bias and decorates each recommendation
// with a review summary. It owns no state of its own.
type Assembler struct {
	summarizer *ReviewSummarizer
	biasWeight float64
}

// NewAssembler creates an assembler. A nil summarizer skips summaries.
func NewAssembler(summarizer *ReviewSummarizer, cfg Config) *Assembler {
	return &Assembler{
		summarizer: summarizer,
		biasWeight: cfg.BiasWeight,
	}
}

// Assemble re-ranks candidates with the session's preference bias and fills
// in summaries best-effort. The input slice is not modified.
func (a *Assembler) Assemble(ctx context.Context, sess *Session, candidates []Recommendation) []Recommendation {
	ranked := BiasRanking(sess, candidates, a.biasWeight)
	if a.summarizer != nil {
		for i := range ranked {
			ranked[i].Summary = a.summarizer.Summarize(ctx, ranked[i].Movie)
		}
	}
	return ranked
}

// FormatRecommendations renders a ranked set as the chat reply body.
func FormatRecommendations(recs []Recommendation) string {
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "%d. %s (%s)", r.Rank, r.Movie.Title, r.Movie.Year())
		if genres := r.Movie.Genres(); len(genres) > 0 {
			b.WriteString(" — " + strings.Join(genres, ", "))
		}
		if r.Movie.VoteAverage > 0 {
			fmt.Fprintf(&b, " — rating %.1f", r.Movie.VoteAverage)
		}
		b.WriteString("\n")
		if r.Summary != "" {
			b.WriteString("   " + r.Summary + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
