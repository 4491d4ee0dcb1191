package renderer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/voice"
)

// VoiceRenderer は、表示のあとに台詞を読み上げます。
// 読み上げの失敗は警告を出すだけで、セッションは続けます。
type VoiceRenderer struct {
	next    Presenter
	speaker voice.Speaker
}

func NewVoiceRenderer(next Presenter, speaker voice.Speaker) *VoiceRenderer {
	return &VoiceRenderer{
		next:    next,
		speaker: speaker,
	}
}

func (v *VoiceRenderer) Present(ctx context.Context, ev event.Event, speaker *hustler.Hustler) error {
	if err := v.next.Present(ctx, ev, speaker); err != nil {
		return err
	}

	if ev.Silent() {
		return nil
	}
	text := strings.TrimSpace(ev.SpokenTTS)
	if text == "" {
		text = strings.TrimSpace(ev.SpokenDisplay)
	}

	name := voice.NarratorVoice
	if speaker != nil && speaker.Voice != "" {
		name = speaker.Voice
	}
	if err := v.speaker.Speak(ctx, text, name); err != nil {
		slog.WarnContext(ctx, "speech failed", "voice", name, "error", err)
		v.next.Announce("(voice unavailable for this line)")
	}
	return nil
}

func (v *VoiceRenderer) Announce(text string) {
	v.next.Announce(text)
}

var _ Presenter = &VoiceRenderer{}
