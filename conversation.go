package moodvie

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// ──────────────────────────────────────────────
// Context Manager — the conversation state machine
// ──────────────────────────────────────────────

// confidenceDiscount is applied to the pending mood's genre confidences on
// every rejected proposal, so repeated rejections visibly erode certainty.
const confidenceDiscount = 0.8

// Reply is what one conversational turn produces.
type Reply struct {
	Text            string           `json:"text"`
	State           State            `json:"state"`
	Mood            *MoodAnalysis    `json:"mood,omitempty"`
	Proposal        []string         `json:"proposal,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	// Degraded marks replies produced on a fallback path (keyword mood
	// analysis, search outage) rather than the full pipeline.
	Degraded bool `json:"degraded,omitempty"`
}

// intent is the coarse classification of a follow-up utterance.
type intent int

const (
	intentNone intent = iota
	intentAffirm
	intentReject
	intentMore
	intentLike
	intentDislike
	intentReset
)

// ContextManager drives one session through the dialogue: mood inference,
// genre confirmation, search, recommendation, feedback. It mutates the
// session it is handed; callers that need rollback pass a clone.
type ContextManager struct {
	analyzer  *MoodAnalyzer
	search    *SearchEngine
	assembler *Assembler
	opener    *OpenerGenerator
	tracer    *Tracer
	cfg       Config
}

// NewContextManager wires the conversation layer.
func NewContextManager(analyzer *MoodAnalyzer, search *SearchEngine, assembler *Assembler, cfg Config) *ContextManager {
	return &ContextManager{
		analyzer:  analyzer,
		search:    search,
		assembler: assembler,
		opener:    NewOpenerGenerator(),
		cfg:       cfg,
	}
}

// HandleTurn processes one user utterance against the session state and
// returns the reply. The turn is appended to the session history before
// returning; only infrastructure failures return an error.
func (m *ContextManager) HandleTurn(ctx context.Context, sess *Session, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return m.finish(sess, text, &Reply{
			Text:  "Ceritakan dulu bagaimana perasaanmu hari ini, nanti kucarikan film yang pas.",
			State: sess.State,
		}), nil
	}
	sess.LastUtterance = text

	in := classifyIntent(text)
	if in == intentReset {
		sess.ResetDialogue()
		return m.finish(sess, text, &Reply{
			Text:  "Oke, kita mulai dari awal. Bagaimana perasaanmu sekarang?",
			State: sess.State,
		}), nil
	}

	var reply *Reply
	var err error
	switch sess.State {
	case StateIdle, StateMoodDetected:
		reply, err = m.handleMood(ctx, sess, text)
	case StateGenreConfirmation:
		reply, err = m.handleConfirmation(ctx, sess, text, in)
	case StateSearching:
		// A previous search degraded; any input retries it.
		reply, err = m.runSearch(ctx, sess)
	case StateRecommending, StateFeedback:
		reply, err = m.handleFollowUp(ctx, sess, text, in)
	default:
		sess.ResetDialogue()
		reply, err = m.handleMood(ctx, sess, text)
	}
	if err != nil {
		return nil, err
	}
	return m.finish(sess, text, reply), nil
}

// finish appends the turn record and stamps the reply with the final state.
func (m *ContextManager) finish(sess *Session, text string, reply *Reply) *Reply {
	reply.State = sess.State
	sess.AppendTurn(Turn{
		UserText:        text,
		At:              time.Now(),
		Mood:            reply.Mood,
		Recommendations: reply.Recommendations,
	})
	return reply
}

// ──────────────────────────────────────────────
// Mood inference
// ──────────────────────────────────────────────

func (m *ContextManager) handleMood(ctx context.Context, sess *Session, text string) (*Reply, error) {
	opener := m.opener.Generate(sess)
	history := sess.RecentTurns(m.cfg.MaxHistoryTurns)

	moodCtx := ctx
	if m.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		moodCtx, cancel = context.WithTimeout(ctx, m.cfg.LLMTimeout)
		defer cancel()
	}

	provider := ""
	if m.analyzer.llm != nil {
		provider = m.analyzer.llm.Name()
	}
	span := m.tracer.MoodSpan(provider)

	degraded := false
	mood, err := m.analyzer.Analyze(moodCtx, text, history)
	if err != nil {
		m.tracer.EndSpan(span, "error", err.Error())
		var infErr *MoodInferenceError
		if !errors.As(err, &infErr) {
			return nil, err
		}
		if !m.cfg.MoodFallback {
			log.Printf("[ContextManager] mood inference failed, no fallback | session=%s err=%v", sess.ID, err)
			return &Reply{
				Text: "Maaf, aku belum bisa membaca suasana hatimu sekarang. Coba ceritakan lagi sebentar lagi ya.",
			}, nil
		}
		log.Printf("[ContextManager] mood inference failed, using keyword fallback | session=%s err=%v", sess.ID, err)
		mood = FallbackMoodAnalysis(text)
		degraded = true
	} else {
		span.SetAttribute("mood", mood.Mood)
		m.tracer.EndSpan(span, "ok", "")
	}

	sess.PendingMood = mood
	sess.MoodUtterance = text
	sess.ConfirmRetries = 0
	sess.ConfirmedGenres = nil
	sess.SearchOffset = 0
	sess.State = StateGenreConfirmation

	proposal := mood.TopGenres(m.cfg.ConfirmTopN)
	body := mood.Rationale + "\n\n" + proposalText(proposal)
	if opener.Line != "" {
		body = opener.Line + " " + body
	}
	return &Reply{
		Text:     body,
		Mood:     mood,
		Proposal: proposal,
		Degraded: degraded,
	}, nil
}

// ──────────────────────────────────────────────
// Genre confirmation
// ──────────────────────────────────────────────

func (m *ContextManager) handleConfirmation(ctx context.Context, sess *Session, text string, in intent) (*Reply, error) {
	if sess.PendingMood == nil {
		sess.ResetDialogue()
		return m.handleMood(ctx, sess, text)
	}

	// Explicit genre names in the utterance override yes/no handling.
	if named := extractGenres(text); len(named) > 0 {
		sess.ConfirmedGenres = named
		sess.State = StateSearching
		return m.runSearch(ctx, sess)
	}

	switch in {
	case intentAffirm:
		sess.ConfirmedGenres = m.currentProposal(sess)
		sess.State = StateSearching
		return m.runSearch(ctx, sess)

	case intentReject:
		sess.ConfirmRetries++
		sess.PendingMood.DiscountConfidences(confidenceDiscount)
		if sess.ConfirmRetries >= m.cfg.MaxConfirmRetries {
			// Out of proposals: search on the single best genre anyway.
			top := sess.PendingMood.TopGenres(1)
			log.Printf("[ContextManager] confirmation retries exhausted | session=%s fallback=%v", sess.ID, top)
			sess.ConfirmedGenres = top
			sess.State = StateSearching
			reply, err := m.runSearch(ctx, sess)
			if err != nil {
				return nil, err
			}
			reply.Text = "Baik, aku coba pilihkan berdasarkan tebakan terbaikku.\n\n" + reply.Text
			return reply, nil
		}
		proposal := m.currentProposal(sess)
		return &Reply{
			Text:     "Oke, bukan itu ya. " + proposalText(proposal),
			Proposal: proposal,
		}, nil

	default:
		// Not a yes/no: the user is telling us something new about their mood.
		return m.handleMood(ctx, sess, text)
	}
}

// currentProposal computes the genre set to offer for the session's current
// rejection round. Round 0 is the mood's top genres; later rounds rotate
// through catalog alternates, excluding everything already offered.
func (m *ContextManager) currentProposal(sess *Session) []string {
	topN := m.cfg.ConfirmTopN
	if sess.ConfirmRetries == 0 {
		return sess.PendingMood.TopGenres(topN)
	}
	exclude := sess.PendingMood.TopGenres(topN)
	for r := 1; r < sess.ConfirmRetries; r++ {
		exclude = append(exclude, AlternateGenres(exclude, topN)...)
	}
	return AlternateGenres(exclude, topN)
}

func proposalText(genres []string) string {
	if len(genres) == 0 {
		return "Mau genre apa hari ini?"
	}
	return fmt.Sprintf("Gimana kalau film %s? Cocok nggak?", strings.Join(genres, ", "))
}

// ──────────────────────────────────────────────
// Search and recommendation
// ──────────────────────────────────────────────

func (m *ContextManager) runSearch(ctx context.Context, sess *Session) (*Reply, error) {
	// The query carries the utterance the mood was inferred from, not the
	// confirmation words the user typed since then.
	query := sess.LastUtterance
	if sess.MoodUtterance != "" {
		query = sess.MoodUtterance
	}
	if sess.PendingMood != nil {
		query = sess.PendingMood.Mood + " " + query
	}
	req := SearchRequest{
		Query:          query,
		Genres:         sess.ConfirmedGenres,
		MinVoteAverage: m.cfg.MinVoteAverage,
		K:              m.cfg.ResultSize,
		Offset:         sess.SearchOffset,
		ExcludeIDs:     sess.ShownMovieIDs(),
	}

	searchCtx := ctx
	if m.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, m.cfg.SearchTimeout)
		defer cancel()
	}

	span := m.tracer.SearchSpan(map[string]interface{}{
		"genres": strings.Join(sess.ConfirmedGenres, ","),
		"offset": sess.SearchOffset,
	})
	candidates, err := m.search.Search(searchCtx, req)
	if err != nil {
		m.tracer.EndSpan(span, "error", err.Error())
		var unavailable *SearchUnavailableError
		if !errors.As(err, &unavailable) {
			return nil, err
		}
		// Stay in SEARCHING so the next utterance retries.
		log.Printf("[ContextManager] search unavailable | session=%s err=%v", sess.ID, err)
		return &Reply{
			Text:     "Pencarian film sedang bermasalah. Coba lagi sebentar ya, aku masih ingat moodmu.",
			Degraded: true,
		}, nil
	}
	span.SetAttribute("results", len(candidates))
	m.tracer.EndSpan(span, "ok", "")

	if len(candidates) == 0 {
		// Nothing matched the confirmed genres: offer alternates instead of
		// an empty page.
		alternates := AlternateGenres(sess.ConfirmedGenres, m.cfg.ConfirmTopN)
		sess.State = StateGenreConfirmation
		sess.ConfirmedGenres = nil
		sess.SearchOffset = 0
		log.Printf("[ContextManager] empty result set | session=%s alternates=%v", sess.ID, alternates)
		return &Reply{
			Text:     "Hmm, belum ketemu yang pas untuk genre itu. " + proposalText(alternates),
			Proposal: alternates,
		}, nil
	}

	ranked := m.assembler.Assemble(ctx, sess, candidates)
	sess.State = StateRecommending
	return &Reply{
		Text:            "Ini rekomendasiku untukmu:\n" + FormatRecommendations(ranked) + "\n\nGimana, ada yang menarik?",
		Recommendations: ranked,
	}, nil
}

// ──────────────────────────────────────────────
// Feedback and follow-ups
// ──────────────────────────────────────────────

func (m *ContextManager) handleFollowUp(ctx context.Context, sess *Session, text string, in intent) (*Reply, error) {
	switch in {
	case intentMore:
		sess.SearchOffset += m.cfg.ResultSize
		sess.State = StateSearching
		return m.runSearch(ctx, sess)

	case intentLike:
		genres := m.feedbackGenres(sess)
		sess.RecordFeedback(genres, true)
		sess.State = StateFeedback
		log.Printf("[ContextManager] positive feedback | session=%s genres=%v", sess.ID, genres)
		return &Reply{
			Text: "Sip, senang kamu suka! Aku catat seleramu. Bilang \"yang lain\" kalau mau pilihan lain, atau ceritakan mood barumu kapan saja.",
		}, nil

	case intentAffirm:
		// A bare "ya"/"ok" here is an acknowledgment, not a rating;
		// preference counters only move on explicit like/dislike words.
		return &Reply{
			Text: "Oke! Kalau ada yang cocok bilang \"suka\", atau \"yang lain\" untuk pilihan lain.",
		}, nil

	case intentDislike, intentReject:
		genres := m.feedbackGenres(sess)
		sess.RecordFeedback(genres, false)
		sess.SearchOffset += m.cfg.ResultSize
		sess.State = StateSearching
		log.Printf("[ContextManager] negative feedback | session=%s genres=%v", sess.ID, genres)
		reply, err := m.runSearch(ctx, sess)
		if err != nil {
			return nil, err
		}
		reply.Text = "Oke, aku hindari yang seperti itu. " + reply.Text
		return reply, nil

	default:
		// A fresh mood statement starts a new round; preferences survive.
		sess.ResetDialogue()
		return m.handleMood(ctx, sess, text)
	}
}

// feedbackGenres resolves which genres a like/dislike applies to: the
// genres of the movies just shown, or the confirmed set when no turn
// carried recommendations.
func (m *ContextManager) feedbackGenres(sess *Session) []string {
	for i := len(sess.Turns) - 1; i >= 0; i-- {
		recs := sess.Turns[i].Recommendations
		if len(recs) == 0 {
			continue
		}
		seen := make(map[string]bool)
		var out []string
		for _, r := range recs {
			for _, g := range r.Movie.Genres() {
				key := NormalizeGenre(g)
				if !seen[key] {
					seen[key] = true
					out = append(out, g)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return sess.ConfirmedGenres
}

// ──────────────────────────────────────────────
// Intent classification
// ──────────────────────────────────────────────

var (
	dislikeMarkers = []string{"tidak suka", "gak suka", "nggak suka", "ga suka", "dislike", "don't like", "dont like"}
	likeMarkers    = []string{"suka", "like", "mantap", "keren banget", "love it", "bagus banget"}

	// Bare "lagi" is ambiguous in Indonesian ("again" vs "currently"),
	// so only the unambiguous phrasings count as pagination.
	moreMarkers   = []string{"more", "lainnya", "yang lain", "selanjutnya", "next", "lagi dong", "cari lagi", "tampilkan lagi"}
	affirmMarkers = []string{"ya", "iya", "yes", "yup", "boleh", "ok", "oke", "okay", "sure", "mau", "cocok", "setuju", "gas"}
	rejectMarkers = []string{"tidak", "nggak", "gak", "ga", "no", "nope", "jangan", "bukan", "skip"}
	resetMarkers  = []string{"reset", "mulai ulang", "start over", "ulang dari awal"}
)

// classifyIntent maps short follow-up utterances to an intent. Phrase
// markers match as substrings, single-word markers as whole words only, so
// "saya gabut" is not read as a rejection just because it contains "ga".
func classifyIntent(text string) intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)

	// Long utterances are mood statements, not commands.
	if len(words) > 6 {
		return intentNone
	}

	match := func(markers []string) bool {
		for _, mk := range markers {
			if strings.Contains(mk, " ") {
				if strings.Contains(lower, mk) {
					return true
				}
				continue
			}
			for _, w := range words {
				if strings.Trim(w, ".,!?") == mk {
					return true
				}
			}
		}
		return false
	}

	switch {
	case match(resetMarkers):
		return intentReset
	case match(dislikeMarkers):
		return intentDislike
	case match(likeMarkers):
		return intentLike
	case match(moreMarkers):
		return intentMore
	case match(affirmMarkers):
		return intentAffirm
	case match(rejectMarkers):
		return intentReject
	}
	return intentNone
}

// extractGenres pulls explicit catalog genre names from an utterance.
func extractGenres(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := make(map[string]bool)
	for _, g := range RecommendableGenres {
		key := NormalizeGenre(g)
		if strings.Contains(lower, key) && !seen[key] {
			seen[key] = true
			out = append(out, g)
		}
	}
	return out
}
