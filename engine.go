package moodvie

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// ──────────────────────────────────────────────
// Engine — the public entry point
// ──────────────────────────────────────────────

// Dependencies are the external adapters the engine runs on. LLM, Embedder
// and Vectors are required; CacheStore and Sessions default to in-memory
// implementations when nil.
type Dependencies struct {
	LLM        LLMProvider
	Embedder   Embedder
	Vectors    VectorStore
	CacheStore CacheStore
	Sessions   SessionStore
	// Tracer observes turn spans; nil disables tracing.
	Tracer *Tracer
}

// Engine is the conversational recommendation engine. It is safe for
// concurrent use: turns within one session are serialized, turns in
// different sessions run in parallel.
//
// Usage:
//
//	engine, err := moodvie.NewEngine(cfg, moodvie.Dependencies{
//	    LLM:      llm,
//	    Embedder: embedder,
//	    Vectors:  vectors,
//	})
//	reply, err := engine.Chat(ctx, "sess-1", "Lagi capek banget nih")
type Engine struct {
	cfg      Config
	manager  *ContextManager
	sessions SessionStore
	vectors  VectorStore
	stats    *Stats
	tracer   *Tracer

	// One mutex per live session, created on first use.
	locks sync.Map // session id -> *sync.Mutex
}

// NewEngine validates the config, fills in default backends and wires the
// pipeline.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.LLM == nil {
		return nil, &ConfigurationError{Field: "LLM", Reason: "provider is required"}
	}
	if deps.Embedder == nil {
		return nil, &ConfigurationError{Field: "Embedder", Reason: "embedder is required"}
	}
	if deps.Vectors == nil {
		return nil, &ConfigurationError{Field: "Vectors", Reason: "vector store is required"}
	}
	if deps.Sessions == nil {
		deps.Sessions = NewInMemorySessionStore()
	}

	analyzer := NewMoodAnalyzer(deps.LLM, cfg)
	search := NewSearchEngine(deps.Embedder, deps.Vectors, deps.CacheStore, cfg)
	summarizer := NewReviewSummarizer(deps.LLM, deps.CacheStore, cfg)
	assembler := NewAssembler(summarizer, cfg)

	manager := NewContextManager(analyzer, search, assembler, cfg)
	manager.tracer = deps.Tracer

	return &Engine{
		cfg:      cfg,
		manager:  manager,
		sessions: deps.Sessions,
		vectors:  deps.Vectors,
		stats:    &Stats{},
		tracer:   deps.Tracer,
	}, nil
}

// Chat handles one utterance for the given session, creating the session on
// first contact. The session is loaded, cloned, mutated by the turn, and
// committed only on success, so a failed turn leaves no partial state.
func (e *Engine) Chat(ctx context.Context, sessionID, text string) (*Reply, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}
	mu := e.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	e.stats.Turns.Inc()

	sess, ok, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		e.stats.TurnFailures.Inc()
		return nil, err
	}
	if !ok {
		sess = NewSession(sessionID)
	}

	e.tracer.NewTrace()
	span := e.tracer.TurnSpan(sessionID)

	working := sess.Clone()
	reply, err := e.manager.HandleTurn(ctx, working, text)
	if err != nil {
		e.tracer.EndSpan(span, "error", err.Error())
		e.stats.TurnFailures.Inc()
		log.Printf("[Engine] turn failed | session=%s err=%v", sessionID, err)
		return nil, err
	}
	span.SetAttribute("state", string(working.State))
	e.tracer.EndSpan(span, "ok", "")
	if reply.Degraded {
		e.stats.DegradedReplies.Inc()
	}
	if reply.Mood != nil {
		e.stats.MoodInferences.Inc()
		if reply.Degraded {
			e.stats.MoodFallbacks.Inc()
		}
	}
	if len(reply.Recommendations) > 0 {
		e.stats.Searches.Inc()
	}
	if working.State == StateFeedback {
		e.stats.FeedbackEvents.Inc()
	}

	if err := e.sessions.Put(ctx, working); err != nil {
		e.stats.TurnFailures.Inc()
		return nil, err
	}
	return reply, nil
}

// Session returns a copy of the stored session, or false when unknown.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, bool, error) {
	return e.sessions.Get(ctx, sessionID)
}

// Movie looks a catalog entry up by exact title, case-insensitive. It is
// the entry point for title questions ("punya film Up?") that callers
// answer outside the conversational flow.
func (e *Engine) Movie(ctx context.Context, title string) (*MovieRecord, bool, error) {
	return e.vectors.FetchByTitle(ctx, title)
}

// EndSession removes a session and its lock.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.locks.Delete(sessionID)
	return nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}
