package moodvie

import (
	"sort"
	"strings"
)

// ──────────────────────────────────────────────
// Genre taxonomy — TMDB genre identifiers
// ──────────────────────────────────────────────

// genreIDs maps normalized genre names to TMDB genre IDs.
var genreIDs = map[string]int{
	"action":          28,
	"adventure":       12,
	"animation":       16,
	"comedy":          35,
	"crime":           80,
	"documentary":     99,
	"drama":           18,
	"family":          10751,
	"fantasy":         14,
	"history":         36,
	"horror":          27,
	"music":           10402,
	"mystery":         9648,
	"romance":         10749,
	"science fiction": 878,
	"sci-fi":          878,
	"thriller":        53,
	"war":             10752,
	"western":         37,
}

var genreNames = func() map[int]string {
	m := make(map[int]string, len(genreIDs))
	for name, id := range genreIDs {
		if name == "sci-fi" {
			continue // alias, keep the canonical name
		}
		m[id] = name
	}
	return m
}()

// RecommendableGenres are the genres the mood analyzer may propose.
var RecommendableGenres = []string{
	"Comedy", "Animation", "Family", "Romance",
	"Adventure", "Drama", "Action", "Thriller",
	"Fantasy", "Science Fiction", "Horror", "Mystery",
}

// NormalizeGenre lowercases and trims a genre name.
func NormalizeGenre(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsValidGenre reports whether name is in the taxonomy.
func IsValidGenre(name string) bool {
	_, ok := genreIDs[NormalizeGenre(name)]
	return ok
}

// GenreID returns the TMDB ID for a genre name, or 0 if unknown.
func GenreID(name string) int {
	return genreIDs[NormalizeGenre(name)]
}

// GenreName returns the display name for a TMDB genre ID, or "" if unknown.
func GenreName(id int) string {
	name, ok := genreNames[id]
	if !ok {
		return ""
	}
	return titleCase(name)
}

// GenreNamesToIDs converts genre names to TMDB IDs, skipping unknown names.
func GenreNamesToIDs(names []string) []int {
	ids := make([]int, 0, len(names))
	seen := make(map[int]bool, len(names))
	for _, n := range names {
		id := GenreID(n)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// GenreIDsToNames converts TMDB IDs to display names, skipping unknown IDs.
func GenreIDsToNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name := GenreName(id); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// AlternateGenres returns recommendable genres not present in exclude,
// used to broaden a confirmation offer after an empty search.
func AlternateGenres(exclude []string, n int) []string {
	skip := make(map[string]bool, len(exclude))
	for _, g := range exclude {
		skip[NormalizeGenre(g)] = true
	}
	out := make([]string, 0, n)
	for _, g := range RecommendableGenres {
		if skip[NormalizeGenre(g)] {
			continue
		}
		out = append(out, g)
		if len(out) >= n {
			break
		}
	}
	return out
}

// AllGenres returns every canonical genre name, sorted.
func AllGenres() []string {
	out := make([]string, 0, len(genreNames))
	for _, name := range genreNames {
		out = append(out, titleCase(name))
	}
	sort.Strings(out)
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
