package renderer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AnglerfishChess/chessplaza/board"
	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
)

const (
	ansiReset     = "\x1b[0m"
	ansiDimItalic = "\x1b[2;3m"
	ansiBold      = "\x1b[1m"
)

var ansiColors = map[string]string{
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
}

// ConsoleOption は ConsoleRenderer の任意設定です。
type ConsoleOption func(*ConsoleRenderer)

// WithTypingDelay は、台詞を1文字ずつ表示する間隔を設定します。
func WithTypingDelay(d time.Duration) ConsoleOption {
	return func(c *ConsoleRenderer) {
		c.delay = d
	}
}

// WithColor は色付けの有無を明示します。
func WithColor(on bool) ConsoleOption {
	return func(c *ConsoleRenderer) {
		c.color = on
	}
}

// NewConsoleRenderer は w に書き出す ConsoleRenderer を生成します。
// w が端末のときだけ ANSI の色を使います。
func NewConsoleRenderer(w io.Writer, opts ...ConsoleOption) *ConsoleRenderer {
	c := &ConsoleRenderer{w: w}
	if f, ok := w.(*os.File); ok {
		c.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ConsoleRenderer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	delay time.Duration
}

func (c *ConsoleRenderer) Present(ctx context.Context, ev event.Event, speaker *hustler.Hustler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := strings.TrimSpace(ev.Narrative); n != "" {
		fmt.Fprintf(c.w, "%s\n\n", c.paint(ansiDimItalic, n))
	}

	if s := strings.TrimSpace(ev.SpokenDisplay); s != "" {
		name := "Someone"
		code := ansiBold
		if speaker != nil {
			name = speaker.DisplayName
			if col, ok := ansiColors[strings.ToLower(speaker.Color)]; ok {
				code = col
			}
		}
		fmt.Fprintf(c.w, "%s: ", c.paint(code, name))
		c.typeOut(ctx, s)
		fmt.Fprint(c.w, "\n\n")
	}

	if ev.HasGame() {
		c.presentGame(ev, speaker)
	}
	return nil
}

func (c *ConsoleRenderer) presentGame(ev event.Event, speaker *hustler.Hustler) {
	var moves []string
	if ev.PlayerMove != "" {
		moves = append(moves, "You: "+ev.PlayerMove)
	}
	if ev.HustlerMove != "" {
		name := "Opponent"
		if speaker != nil {
			name = speaker.DisplayName
		}
		moves = append(moves, name+": "+ev.HustlerMove)
	}
	if len(moves) > 0 {
		fmt.Fprintf(c.w, "%s\n", strings.Join(moves, "   "))
	}

	if ev.FEN != "" {
		diagram, err := board.Draw(ev.FEN)
		if err != nil {
			fmt.Fprintf(c.w, "(unreadable position: %s)\n", ev.FEN)
		} else {
			fmt.Fprintf(c.w, "%s\n", strings.TrimRight(diagram, "\n"))
		}
	}

	if ev.GameStatus != "" && ev.GameStatus != event.StatusOngoing {
		fmt.Fprintf(c.w, "%s\n", c.paint(ansiBold, "*** "+strings.ToUpper(ev.GameStatus)+" ***"))
	}
	fmt.Fprintln(c.w)
}

func (c *ConsoleRenderer) Announce(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s\n", c.paint(ansiBold, text))
}

func (c *ConsoleRenderer) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + ansiReset
}

// typeOut は台詞を1文字ずつ表示します。ctx が終わったら残りをまとめて出します。
func (c *ConsoleRenderer) typeOut(ctx context.Context, s string) {
	if c.delay <= 0 {
		fmt.Fprint(c.w, s)
		return
	}
	for i, r := range s {
		select {
		case <-ctx.Done():
			fmt.Fprint(c.w, s[i:])
			return
		case <-time.After(c.delay):
		}
		fmt.Fprint(c.w, string(r))
	}
}

var _ Presenter = &ConsoleRenderer{}
