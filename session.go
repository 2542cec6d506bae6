package moodvie

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────
// Session — per-conversation state, no globals
// ──────────────────────────────────────────────

// State is the conversation position in the recommendation dialogue.
type State string

const (
	StateIdle              State = "IDLE"
	StateMoodDetected      State = "MOOD_DETECTED"
	StateGenreConfirmation State = "GENRE_CONFIRMATION"
	StateSearching         State = "SEARCHING"
	StateRecommending      State = "RECOMMENDING"
	StateFeedback          State = "FEEDBACK"
)

// Turn is one user utterance and what the engine derived from it.
// Immutable once appended to a session.
type Turn struct {
	UserText        string           `json:"user_text"`
	At              time.Time        `json:"at"`
	Mood            *MoodAnalysis    `json:"mood,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Session holds everything the engine knows about one conversation.
// Turns are append-only and totally ordered; preference counters move only
// on explicit feedback events. Sessions are independent: the engine
// serializes turns within a session, different sessions run in parallel.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     State     `json:"state"`
	Turns     []Turn    `json:"turns"`

	// Per-genre feedback counters, keyed by normalized genre name.
	Likes    map[string]int `json:"likes"`
	Dislikes map[string]int `json:"dislikes"`

	// Conversation slots, valid between turns. MoodUtterance keeps the text
	// the pending mood was inferred from, so confirmation words ("ya") never
	// replace the user's own words in the search query.
	PendingMood     *MoodAnalysis `json:"pending_mood,omitempty"`
	ConfirmedGenres []string      `json:"confirmed_genres,omitempty"`
	ConfirmRetries  int           `json:"confirm_retries"`
	SearchOffset    int           `json:"search_offset"`
	LastUtterance   string        `json:"last_utterance,omitempty"`
	MoodUtterance   string        `json:"mood_utterance,omitempty"`
}

// NewSession creates a session in StateIdle. An empty id gets a UUID.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		State:     StateIdle,
		Likes:     make(map[string]int),
		Dislikes:  make(map[string]int),
	}
}

// AppendTurn records a completed turn. Turns are never mutated afterwards.
func (s *Session) AppendTurn(t Turn) {
	s.Turns = append(s.Turns, t)
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) > n {
		return s.Turns[len(s.Turns)-n:]
	}
	return s.Turns
}

// ResetDialogue clears the conversation slots and returns to StateIdle.
// Preference counters and turn history survive the reset.
func (s *Session) ResetDialogue() {
	s.State = StateIdle
	s.PendingMood = nil
	s.ConfirmedGenres = nil
	s.ConfirmRetries = 0
	s.SearchOffset = 0
	s.LastUtterance = ""
	s.MoodUtterance = ""
}

// ShownMovieIDs returns the IDs of every movie already recommended in this
// session, in the order first shown. Later search rounds exclude them so a
// new mood never repeats what the user has already seen.
func (s *Session) ShownMovieIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.Turns {
		for _, r := range t.Recommendations {
			if r.Movie.ID == "" || seen[r.Movie.ID] {
				continue
			}
			seen[r.Movie.ID] = true
			out = append(out, r.Movie.ID)
		}
	}
	return out
}

// Clone deep-copies the session so a failed turn can be rolled back by
// simply not committing the copy.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Turns = make([]Turn, len(s.Turns))
	copy(cp.Turns, s.Turns)
	cp.Likes = make(map[string]int, len(s.Likes))
	for k, v := range s.Likes {
		cp.Likes[k] = v
	}
	cp.Dislikes = make(map[string]int, len(s.Dislikes))
	for k, v := range s.Dislikes {
		cp.Dislikes[k] = v
	}
	if s.PendingMood != nil {
		mood := *s.PendingMood
		mood.Genres = make([]GenreCandidate, len(s.PendingMood.Genres))
		copy(mood.Genres, s.PendingMood.Genres)
		cp.PendingMood = &mood
	}
	cp.ConfirmedGenres = append([]string(nil), s.ConfirmedGenres...)
	return &cp
}

// SessionStore is the pluggable session backend. The in-memory
// implementation below is the default; store.RedisSessionStore persists
// sessions across restarts.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, bool, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// InMemorySessionStore is a thread-safe in-memory SessionStore.
// Sessions are lost when the process ends.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemorySessionStore creates an empty in-memory store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *InMemorySessionStore) Get(_ context.Context, id string) (*Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

func (s *InMemorySessionStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

var _ SessionStore = (*InMemorySessionStore)(nil)
