package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/topic"
)

func testRegistry() *hustler.Registry {
	r := hustler.NewRegistry()
	r.Register(&hustler.Hustler{ID: "eddie", DisplayName: "Fast Eddie", Prompt: "Fast Eddie is cocky."})
	r.Register(&hustler.Hustler{ID: "viktor", DisplayName: "Viktor", Prompt: "Viktor is melancholic."})
	return r
}

func TestNextActionsFollowRegistry(t *testing.T) {
	r := testRegistry()
	c := New(r, "English")

	want := []string{"select_hustler", "approach_eddie", "approach_viktor"}
	if diff := cmp.Diff(want, c.NextActions()); diff != "" {
		t.Fatalf("NextActions mismatch (-want +got):\n%s", diff)
	}

	r.Register(&hustler.Hustler{ID: "mei", DisplayName: "Mei"})
	got := c.NextActions()
	if len(got) != 1+r.Len() {
		t.Fatalf("len(NextActions) = %d, want %d", len(got), 1+r.Len())
	}
	if got[len(got)-1] != "approach_mei" {
		t.Fatalf("new hustler missing from NextActions: %v", got)
	}
	if !strings.Contains(c.ParkPrompt(), `"next_action": "select_hustler|approach_eddie|approach_viktor|approach_mei"`) {
		t.Fatalf("park prompt does not carry the regenerated enum:\n%s", c.ParkPrompt())
	}
}

func TestParkPrompt(t *testing.T) {
	p := New(testRegistry(), "English").ParkPrompt()

	for _, want := range []string{
		"narrator of Chess Plaza",
		"ParkEvent",
		"--- Fast Eddie (id: eddie) ---",
		"Viktor is melancholic.",
		`"speaker": "eddie|viktor or empty string if nobody speaks"`,
		`"spoken_display"`,
		`"spoken_tts"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("park prompt missing %q", want)
		}
	}
	if strings.Contains(p, "LANGUAGE:") {
		t.Error("default language should not add a language instruction")
	}
	if strings.Contains(p, "player_intent") {
		t.Error("park prompt should not carry the dialog contract")
	}
}

func TestHustlerPrompt(t *testing.T) {
	r := testRegistry()
	eddie, _ := r.Lookup("eddie")
	p := New(r, "Russian", WithToolGuide("- make_move: play a move")).HustlerPrompt(eddie)

	for _, want := range []string{
		"You are Fast Eddie. Play this character:",
		"Fast Eddie is cocky.",
		"DialogEvent",
		`"player_intent": "continue|leaving_opponent|leaving_park|stay"`,
		`"game_status": "ongoing|checkmate|stalemate|draw, only while a game is on"`,
		"LANGUAGE: Respond entirely in Russian.",
		"dubbed movie",
		"- make_move: play a move",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("hustler prompt missing %q", want)
		}
	}
	if strings.Contains(p, "Viktor is melancholic.") {
		t.Error("hustler prompt should only carry its own persona")
	}
}

func TestUnifiedPrompt(t *testing.T) {
	c := New(testRegistry(), "en", WithTopics([]*topic.Topic{{Title: "Heatwave hits the city"}}))
	p := c.UnifiedPrompt(time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC))

	for _, want := range []string{
		"[NARRATOR]",
		"[TALKING TO <Name>]",
		"PARK TIME: afternoon, Wednesday, January 15.",
		"ParkEvent",
		"DialogEvent",
		`"next_action": "select_hustler|approach_eddie|approach_viktor"`,
		"- Heatwave hits the city",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("unified prompt missing %q", want)
		}
	}
	if strings.Contains(p, "LANGUAGE:") {
		t.Error("\"en\" should be treated as the default language")
	}
	if strings.Contains(p, "CHESS:") {
		t.Error("tool section should be omitted without a tool guide")
	}
}

func TestTalkingToMarker(t *testing.T) {
	got := TalkingToMarker(&hustler.Hustler{ID: "mei", DisplayName: "Mei"})
	if got != "[TALKING TO Mei]" {
		t.Fatalf("TalkingToMarker = %q", got)
	}
}
