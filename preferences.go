package moodvie

import "sort"

// ──────────────────────────────────────────────
// Preference bias — like/dislike counters to ranking bonus
// ──────────────────────────────────────────────

// maxPreferenceScore bounds a single genre's bias so a strongly liked genre
// can never completely override similarity.
const maxPreferenceScore = 2.0

// RecordFeedback adjusts the per-genre counters for one discrete feedback
// event. Counters move only through this method, never by silent inference.
func (s *Session) RecordFeedback(genres []string, liked bool) {
	for _, g := range genres {
		key := NormalizeGenre(g)
		if key == "" {
			continue
		}
		if liked {
			s.Likes[key]++
		} else {
			s.Dislikes[key]++
		}
	}
}

// PreferenceScore returns the bounded bias for one genre:
// likes minus dislikes, clamped to [-maxPreferenceScore, +maxPreferenceScore].
// Non-decreasing in the number of likes for a fixed dislike count.
func (s *Session) PreferenceScore(genre string) float64 {
	key := NormalizeGenre(genre)
	score := float64(s.Likes[key] - s.Dislikes[key])
	if score > maxPreferenceScore {
		return maxPreferenceScore
	}
	if score < -maxPreferenceScore {
		return -maxPreferenceScore
	}
	return score
}

// moviePreferenceScore sums the per-genre bias over a movie's genres,
// clamped once more so multi-genre movies stay within the same bound.
func (s *Session) moviePreferenceScore(m MovieRecord) float64 {
	var total float64
	for _, name := range m.Genres() {
		total += s.PreferenceScore(name)
	}
	if total > maxPreferenceScore {
		return maxPreferenceScore
	}
	if total < -maxPreferenceScore {
		return -maxPreferenceScore
	}
	return total
}

// BiasRanking recomputes FinalScore = Similarity + alpha*preference for each
// candidate and re-sorts: final score descending, catalog quality blend
// descending, then ID ascending for full determinism. Ranks are reassigned
// from 1.
func BiasRanking(s *Session, candidates []Recommendation, alpha float64) []Recommendation {
	out := make([]Recommendation, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].FinalScore = out[i].Similarity + alpha*s.moviePreferenceScore(out[i].Movie)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		qi, qj := out[i].Movie.QualityScore(), out[j].Movie.QualityScore()
		if qi != qj {
			return qi > qj
		}
		return out[i].Movie.ID < out[j].Movie.ID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// LikedGenres returns genres with a positive net counter, most liked first.
func (s *Session) LikedGenres() []string {
	type entry struct {
		name string
		net  int
	}
	var entries []entry
	for g, n := range s.Likes {
		if net := n - s.Dislikes[g]; net > 0 {
			entries = append(entries, entry{name: g, net: net})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].net != entries[j].net {
			return entries[i].net > entries[j].net
		}
		return entries[i].name < entries[j].name
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = titleCase(e.name)
	}
	return out
}
