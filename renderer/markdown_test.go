package renderer

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/message"
)

func runTranscript(t *testing.T, msgs []*message.Message, roster []*hustler.Hustler) *MarkdownRenderer {
	t.Helper()

	r := NewMarkdownRenderer(t.TempDir())
	r.now = func() time.Time { return time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC) }

	b := bus.NewMemoryBus(0)
	var wg sync.WaitGroup
	if err := r.Render(b, &wg); err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, m := range msgs {
		if err := b.Broadcast(m); err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
	}
	b.Close()
	wg.Wait()

	if err := r.Finalize(roster); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return r
}

func TestMarkdownTranscript(t *testing.T) {
	viktor := &hustler.Hustler{ID: "viktor", DisplayName: "Viktor", Elo: 2200}
	msgs := []*message.Message{
		{Kind: message.KindNarrative, Text: "The park hums."},
		{Kind: message.KindSpeech, From: eddie, Text: "Hey, you!"},
		{Kind: message.KindPlayer, Text: "I'll play you."},
		{Kind: message.KindBoard, Text: "e4 e5"},
		{Kind: message.KindLog, Text: "WARN voice unavailable"},
		{Kind: message.KindSystem, Text: "You leave the park."},
	}
	r := runTranscript(t, msgs, []*hustler.Hustler{viktor, eddie})

	if !strings.HasSuffix(r.Path(), "chessplaza-20250115-140000.md") {
		t.Fatalf("path = %q", r.Path())
	}
	data, err := os.ReadFile(r.Path())
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`title = "A game with Fast Eddie"`,
		`date = "2025-01-15T14:00:00Z"`,
		`tags = ["chess", "Fast Eddie"]`,
		"- **Fast Eddie** (Elo 1800)",
		"_The park hums._",
		"**Fast Eddie:** Hey, you!",
		"**You:** I'll play you.",
		"`e4 e5`",
		"<!-- WARN voice unavailable -->",
		"> You leave the park.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Viktor") {
		t.Error("hustlers the player never met should not be in the cast")
	}
}

func TestMarkdownSkipsShortOrFailedSessions(t *testing.T) {
	r := runTranscript(t, []*message.Message{{Kind: message.KindNarrative, Text: "Only one line."}}, nil)
	if r.Path() != "" {
		t.Fatalf("short session should not be written: %q", r.Path())
	}

	r = runTranscript(t, []*message.Message{
		{Kind: message.KindNarrative, Text: "The park hums."},
		{Kind: message.KindError, Text: "model failed"},
	}, nil)
	if r.Path() != "" {
		t.Fatalf("failed session should not be written: %q", r.Path())
	}
}
