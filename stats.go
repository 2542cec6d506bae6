package moodvie

import "go.uber.org/atomic"

// Stats counts engine activity. All counters are lock-free and safe to read
// while turns are in flight; a snapshot is not atomic across fields.
type Stats struct {
	Turns           atomic.Int64
	MoodInferences  atomic.Int64
	MoodFallbacks   atomic.Int64
	Searches        atomic.Int64
	DegradedReplies atomic.Int64
	FeedbackEvents  atomic.Int64
	TurnFailures    atomic.Int64
}

// StatsSnapshot is a plain-value copy for logging or serving.
type StatsSnapshot struct {
	Turns           int64 `json:"turns"`
	MoodInferences  int64 `json:"mood_inferences"`
	MoodFallbacks   int64 `json:"mood_fallbacks"`
	Searches        int64 `json:"searches"`
	DegradedReplies int64 `json:"degraded_replies"`
	FeedbackEvents  int64 `json:"feedback_events"`
	TurnFailures    int64 `json:"turn_failures"`
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Turns:           s.Turns.Load(),
		MoodInferences:  s.MoodInferences.Load(),
		MoodFallbacks:   s.MoodFallbacks.Load(),
		Searches:        s.Searches.Load(),
		DegradedReplies: s.DegradedReplies.Load(),
		FeedbackEvents:  s.FeedbackEvents.Load(),
		TurnFailures:    s.TurnFailures.Load(),
	}
}
