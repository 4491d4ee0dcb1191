package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"google.golang.org/genai"
)

// DefaultTTSModel は読み上げに使うモデルです。
const DefaultTTSModel = "gemini-2.5-flash-preview-tts"

// GeminiSpeaker は Gemini TTS で音声を作り、外部プレイヤーで鳴らします。
type GeminiSpeaker struct {
	client *genai.Client
	model  string
	player string
	run    func(ctx context.Context, name string, args ...string) error
}

func NewGeminiSpeaker(client *genai.Client, player string) *GeminiSpeaker {
	return &GeminiSpeaker{
		client: client,
		model:  DefaultTTSModel,
		player: player,
		run:    runCommand,
	}
}

func (s *GeminiSpeaker) Speak(ctx context.Context, text, voice string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if voice == "" {
		voice = NarratorVoice
	}

	pcm, err := s.synthesize(ctx, text, voice)
	if err != nil {
		return fmt.Errorf("voice.GeminiSpeaker.Speak: %w", err)
	}

	f, err := os.CreateTemp("", "chessplaza-*.wav")
	if err != nil {
		return fmt.Errorf("voice.GeminiSpeaker.Speak: %w", err)
	}
	defer os.Remove(f.Name())

	if err := WriteWAV(f, pcm, SampleRate); err != nil {
		f.Close()
		return fmt.Errorf("voice.GeminiSpeaker.Speak: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("voice.GeminiSpeaker.Speak: %w", err)
	}

	slog.DebugContext(ctx, "playing speech", "voice", voice, "bytes", len(pcm), "player", s.player)
	if err := s.run(ctx, s.player, playerArgs(s.player, f.Name())...); err != nil {
		return fmt.Errorf("voice.GeminiSpeaker.Speak: play: %w", err)
	}
	return nil
}

func (s *GeminiSpeaker) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	cfg.ResponseModalities = append(cfg.ResponseModalities, "AUDIO")

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: text}},
	}}
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio in response")
	}
	return pcm, nil
}

func extractAudio(res *genai.GenerateContentResponse) []byte {
	if res == nil {
		return nil
	}
	var pcm []byte
	for _, c := range res.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.InlineData != nil {
				pcm = append(pcm, p.InlineData.Data...)
			}
		}
		if len(pcm) > 0 {
			return pcm
		}
	}
	return pcm
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

var _ Speaker = &GeminiSpeaker{}
