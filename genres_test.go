package moodvie

import "testing"

// ══════════════════════════════════════════════
// Genre taxonomy tests
// ══════════════════════════════════════════════

func TestGenreID_KnownNames(t *testing.T) {
	if id := GenreID("Action"); id != 28 {
		t.Fatalf("expected 28 for Action, got %d", id)
	}
	if id := GenreID("  comedy "); id != 35 {
		t.Fatalf("expected 35 for comedy, got %d", id)
	}
	if id := GenreID("Science Fiction"); id != 878 {
		t.Fatalf("expected 878 for Science Fiction, got %d", id)
	}
}

func TestGenreID_Alias(t *testing.T) {
	if GenreID("sci-fi") != GenreID("science fiction") {
		t.Fatal("sci-fi should alias science fiction")
	}
}

func TestGenreID_Unknown(t *testing.T) {
	if id := GenreID("telenovela"); id != 0 {
		t.Fatalf("unknown genre should map to 0, got %d", id)
	}
}

func TestGenreName_RoundTrip(t *testing.T) {
	if name := GenreName(10751); name != "Family" {
		t.Fatalf("expected Family, got %s", name)
	}
	if name := GenreName(878); name != "Science Fiction" {
		t.Fatalf("expected Science Fiction, got %s", name)
	}
	if name := GenreName(-1); name != "" {
		t.Fatalf("unknown id should map to empty, got %s", name)
	}
}

func TestGenreNamesToIDs_SkipsUnknownAndDupes(t *testing.T) {
	ids := GenreNamesToIDs([]string{"Comedy", "comedy", "nope", "Drama"})
	if len(ids) != 2 || ids[0] != 35 || ids[1] != 18 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestAlternateGenres_ExcludesGiven(t *testing.T) {
	alt := AlternateGenres([]string{"Comedy", "Animation", "Family"}, 3)
	if len(alt) != 3 {
		t.Fatalf("expected 3 alternates, got %v", alt)
	}
	for _, g := range alt {
		switch g {
		case "Comedy", "Animation", "Family":
			t.Fatalf("excluded genre %s offered again", g)
		}
	}
}

func TestAlternateGenres_Deterministic(t *testing.T) {
	a := AlternateGenres([]string{"Comedy"}, 3)
	b := AlternateGenres([]string{"Comedy"}, 3)
	if len(a) != len(b) {
		t.Fatal("alternates should be deterministic")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("alternates should be deterministic")
		}
	}
}

func TestIsValidGenre(t *testing.T) {
	if !IsValidGenre("Horror") {
		t.Fatal("Horror should be valid")
	}
	if IsValidGenre("sinetron") {
		t.Fatal("sinetron should not be valid")
	}
}
