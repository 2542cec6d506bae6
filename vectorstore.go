package moodvie

import "context"

// MovieRecord is the read-only catalog entry stored alongside each vector.
// Ownership stays with the external catalog population process; the engine
// only reads it.
type MovieRecord struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	GenreIDs    []int   `json:"genre_ids"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	ReleaseDate string  `json:"release_date"`
	RawReviews  string  `json:"raw_reviews,omitempty"`
}

// Genres returns the record's genre display names.
func (m MovieRecord) Genres() []string {
	return GenreIDsToNames(m.GenreIDs)
}

// QualityScore blends rating, popularity and vote volume into one catalog
// quality signal: vote_average*0.7 + popularity*0.003 + min(votes/1000, 1)*0.5.
// The vote-volume term saturates at 1000 votes so a single blockbuster
// cannot drown out well-rated smaller titles.
func (m MovieRecord) QualityScore() float64 {
	votes := float64(m.VoteCount) / 1000
	if votes > 1 {
		votes = 1
	}
	return m.VoteAverage*0.7 + m.Popularity*0.003 + votes*0.5
}

// Year extracts the release year, or "N/A".
func (m MovieRecord) Year() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return "N/A"
}

// MovieHit is a single similarity-search result.
type MovieHit struct {
	Movie      MovieRecord
	Similarity float64
}

// SearchFilter restricts a similarity query. An empty GenreIDs slice means
// no genre restriction; a zero MinVoteAverage means no rating threshold.
type SearchFilter struct {
	GenreIDs       []int
	MinVoteAverage float64
}

// VectorStore is the narrow contract to the external vector database.
// The Qdrant adapter lives in the store subpackage. Failures are reported
// as *StoreError; the search engine converts them to SearchUnavailableError.
type VectorStore interface {
	// Query returns hits ordered by similarity descending.
	Query(ctx context.Context, vector []float32, filter SearchFilter, limit, offset int) ([]MovieHit, error)
	// FetchByTitle looks a movie up by exact title, case-insensitive.
	FetchByTitle(ctx context.Context, title string) (*MovieRecord, bool, error)
}
