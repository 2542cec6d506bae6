package moodvie

import "time"

// ──────────────────────────────────────────────
// Conversation Opener — situational greeting for the first reply
// ──────────────────────────────────────────────

// OpenerStrategy holds the generated opening for the current turn.
type OpenerStrategy struct {
	Situation string // first_meeting/long_absence/normal
	Line      string // greeting line prepended to the reply, may be empty
}

// OpenerConfig controls opener generation behavior.
type OpenerConfig struct {
	LongAbsence time.Duration // gap threshold for "long_absence", default 72h
}

// DefaultOpenerConfig returns production defaults.
func DefaultOpenerConfig() OpenerConfig {
	return OpenerConfig{LongAbsence: 72 * time.Hour}
}

// OpenerGenerator produces a situational greeting from session history.
type OpenerGenerator struct {
	config OpenerConfig
	now    func() time.Time
}

// NewOpenerGenerator creates an opener generator.
func NewOpenerGenerator(config ...OpenerConfig) *OpenerGenerator {
	cfg := DefaultOpenerConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.LongAbsence <= 0 {
		cfg.LongAbsence = 72 * time.Hour
	}
	return &OpenerGenerator{config: cfg, now: time.Now}
}

// Generate picks the opener for a session about to start a new mood round.
// Mid-conversation turns get Situation="normal" with an empty line.
func (g *OpenerGenerator) Generate(sess *Session) *OpenerStrategy {
	if len(sess.Turns) == 0 {
		return &OpenerStrategy{
			Situation: "first_meeting",
			Line:      "Halo! Aku MoodVie, teman nonton kamu.",
		}
	}
	last := sess.Turns[len(sess.Turns)-1].At
	if !last.IsZero() && g.now().Sub(last) >= g.config.LongAbsence {
		return &OpenerStrategy{
			Situation: "long_absence",
			Line:      "Lama nggak ketemu! Senang kamu kembali.",
		}
	}
	return &OpenerStrategy{Situation: "normal"}
}
