package moodvie

import (
	"testing"
	"time"
)

// ══════════════════════════════════════════════
// OpenerGenerator tests
// ══════════════════════════════════════════════

func TestOpener_FirstMeeting(t *testing.T) {
	g := NewOpenerGenerator()
	got := g.Generate(NewSession("s"))
	if got.Situation != "first_meeting" || got.Line == "" {
		t.Fatalf("fresh session should greet: %+v", got)
	}
}

func TestOpener_Normal(t *testing.T) {
	g := NewOpenerGenerator()
	s := NewSession("s")
	s.AppendTurn(Turn{UserText: "halo", At: time.Now()})

	got := g.Generate(s)
	if got.Situation != "normal" || got.Line != "" {
		t.Fatalf("recent conversation should not greet: %+v", got)
	}
}

func TestOpener_LongAbsence(t *testing.T) {
	g := NewOpenerGenerator(OpenerConfig{LongAbsence: 24 * time.Hour})
	s := NewSession("s")
	s.AppendTurn(Turn{UserText: "halo", At: time.Now().Add(-48 * time.Hour)})

	got := g.Generate(s)
	if got.Situation != "long_absence" || got.Line == "" {
		t.Fatalf("long gap should be acknowledged: %+v", got)
	}
}
