package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/voice"
)

type recordingPresenter struct {
	events    []event.Event
	announced []string
}

func (p *recordingPresenter) Present(_ context.Context, ev event.Event, _ *hustler.Hustler) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPresenter) Announce(text string) {
	p.announced = append(p.announced, text)
}

type spoken struct {
	Text  string
	Voice string
}

type fakeSpeaker struct {
	spoken []spoken
	err    error
}

func (s *fakeSpeaker) Speak(_ context.Context, text, v string) error {
	s.spoken = append(s.spoken, spoken{text, v})
	return s.err
}

func TestVoiceRendererSpeaksTTS(t *testing.T) {
	next := &recordingPresenter{}
	sp := &fakeSpeaker{}
	v := NewVoiceRenderer(next, sp)

	ctx := context.Background()
	_ = v.Present(ctx, event.Event{SpokenDisplay: "Whaddya got?", SpokenTTS: "What have you got?"}, eddie)
	_ = v.Present(ctx, event.Event{Narrative: "Leaves fall.", SpokenDisplay: "Come closer."}, nil)
	_ = v.Present(ctx, event.Event{Narrative: "Silence."}, eddie)

	want := []spoken{
		{"What have you got?", "Puck"},
		{"Come closer.", voice.NarratorVoice},
	}
	if diff := cmp.Diff(want, sp.spoken); diff != "" {
		t.Fatalf("spoken mismatch (-want +got):\n%s", diff)
	}
	if len(next.events) != 3 {
		t.Fatalf("presented %d events, want 3", len(next.events))
	}
}

func TestVoiceRendererFailureIsNotFatal(t *testing.T) {
	next := &recordingPresenter{}
	v := NewVoiceRenderer(next, &fakeSpeaker{err: errors.New("no device")})

	if err := v.Present(context.Background(), event.Event{SpokenTTS: "Hi."}, eddie); err != nil {
		t.Fatalf("Present should swallow voice errors: %v", err)
	}
	if len(next.announced) != 1 {
		t.Fatalf("announced = %v, want one warning", next.announced)
	}
}
