package moodvie

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// ══════════════════════════════════════════════
// Assembler tests
// ══════════════════════════════════════════════

func TestAssembler_AppliesBias(t *testing.T) {
	sess := NewSession("s")
	for i := 0; i < 3; i++ {
		sess.RecordFeedback([]string{"Animation"}, true)
	}
	a := NewAssembler(nil, DefaultConfig())

	candidates := []Recommendation{
		{Movie: MovieRecord{ID: "a", GenreIDs: []int{28}}, Similarity: 0.92},
		{Movie: MovieRecord{ID: "b", GenreIDs: []int{16}}, Similarity: 0.90},
	}
	ranked := a.Assemble(context.Background(), sess, candidates)
	if ranked[0].Movie.ID != "b" {
		t.Fatalf("liked genre should rank first: %+v", ranked)
	}
}

func TestAssembler_FillsSummaries(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"Penonton memuji film ini."}}
	summarizer := NewReviewSummarizer(llm, nil, DefaultConfig())
	a := NewAssembler(summarizer, DefaultConfig())

	candidates := []Recommendation{
		{Movie: MovieRecord{ID: "a", Title: "Up", RawReviews: "Amazing movie"}, Similarity: 0.9},
	}
	ranked := a.Assemble(context.Background(), NewSession("s"), candidates)
	if ranked[0].Summary != "Penonton memuji film ini." {
		t.Fatalf("expected summary, got %q", ranked[0].Summary)
	}
}

func TestAssembler_SummaryFailureIsNotFatal(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{""},
		errs:      []error{errors.New("llm down")},
	}
	summarizer := NewReviewSummarizer(llm, nil, DefaultConfig())
	a := NewAssembler(summarizer, DefaultConfig())

	candidates := []Recommendation{
		{Movie: MovieRecord{ID: "a", Title: "Up", RawReviews: "Amazing movie, great story"}, Similarity: 0.9},
	}
	ranked := a.Assemble(context.Background(), NewSession("s"), candidates)
	if len(ranked) != 1 {
		t.Fatal("summary failure must not drop the recommendation")
	}
	if ranked[0].Summary == "" {
		t.Fatal("sentiment fallback should still produce a line")
	}
}

func TestFormatRecommendations(t *testing.T) {
	recs := []Recommendation{
		{
			Movie: MovieRecord{
				ID: "1", Title: "Up", GenreIDs: []int{16},
				VoteAverage: 8.2, ReleaseDate: "2009-05-29",
			},
			Rank:    1,
			Summary: "Mengharukan.",
		},
		{
			Movie: MovieRecord{ID: "2", Title: "Coco", GenreIDs: []int{16}},
			Rank:  2,
		},
	}
	out := FormatRecommendations(recs)
	if !strings.Contains(out, "1. Up (2009)") {
		t.Fatalf("missing title line: %q", out)
	}
	if !strings.Contains(out, "Animation") {
		t.Fatalf("missing genre: %q", out)
	}
	if !strings.Contains(out, "rating 8.2") {
		t.Fatalf("missing rating: %q", out)
	}
	if !strings.Contains(out, "Mengharukan.") {
		t.Fatalf("missing summary: %q", out)
	}
}
