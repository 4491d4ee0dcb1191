package renderer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
)

var eddie = &hustler.Hustler{ID: "eddie", DisplayName: "Fast Eddie", Voice: "Puck", Color: "cyan", Elo: 1800}

func TestConsolePresentPlain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleRenderer(&buf)

	err := c.Present(context.Background(), event.Event{
		Narrative:     "Pigeons scatter.",
		SpokenDisplay: "Hey, you! Wanna play?",
	}, eddie)
	if err != nil {
		t.Fatalf("Present: %v", err)
	}

	want := "Pigeons scatter.\n\nFast Eddie: Hey, you! Wanna play?\n\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestConsolePresentColor(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleRenderer(&buf, WithColor(true))

	_ = c.Present(context.Background(), event.Event{Narrative: "Wind.", SpokenDisplay: "Sit."}, eddie)
	out := buf.String()
	if !strings.Contains(out, ansiDimItalic+"Wind."+ansiReset) {
		t.Errorf("narrative not dimmed: %q", out)
	}
	if !strings.Contains(out, ansiColors["cyan"]+"Fast Eddie"+ansiReset) {
		t.Errorf("speaker not coloured: %q", out)
	}
}

func TestConsolePresentNarratorSilent(t *testing.T) {
	var buf bytes.Buffer
	_ = NewConsoleRenderer(&buf).Present(context.Background(), event.Event{Narrative: "Quiet afternoon."}, nil)
	if buf.String() != "Quiet afternoon.\n\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsolePresentGame(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleRenderer(&buf)

	err := c.Present(context.Background(), event.Event{
		SpokenDisplay: "Mate, kid.",
		FEN:           "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		GameStatus:    event.StatusCheckmate,
		PlayerMove:    "g4",
		HustlerMove:   "Qh4#",
	}, eddie)
	if err != nil {
		t.Fatalf("Present: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"You: g4   Fast Eddie: Qh4#",
		"A B C D E F G H",
		"*** CHECKMATE ***",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsolePresentBadFEN(t *testing.T) {
	var buf bytes.Buffer
	_ = NewConsoleRenderer(&buf).Present(context.Background(), event.Event{FEN: "garbage"}, eddie)
	if !strings.Contains(buf.String(), "(unreadable position: garbage)") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsoleTypingStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleRenderer(&buf, WithTypingDelay(1<<40))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = c.Present(ctx, event.Event{SpokenDisplay: "Hello"}, eddie)
	if !strings.Contains(buf.String(), "Fast Eddie: Hello") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestConsoleAnnounce(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleRenderer(&buf).Announce("You leave the park.")
	if buf.String() != "You leave the park.\n" {
		t.Fatalf("output = %q", buf.String())
	}
}
