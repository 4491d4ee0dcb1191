package voice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrUnavailable は音声を出せない環境であることを表します。
var ErrUnavailable = errors.New("voice unavailable")

// NarratorVoice は語り手の声です。
const NarratorVoice = "Kore"

// Players は、試す順番に並べた音声プレイヤーです。
var Players = []string{"aplay", "paplay", "afplay", "ffplay"}

// LookPathFunc は exec.LookPath と同じ形の関数です。
type LookPathFunc func(file string) (string, error)

// Probe は使える音声プレイヤーを探し、そのパスを返します。起動時に一度だけ呼びます。
func Probe(lookPath LookPathFunc) (string, error) {
	for _, name := range Players {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("voice.Probe: %w: no audio player found (install alsa-utils, pulseaudio-utils or ffmpeg)", ErrUnavailable)
}

// Speaker はテキストを読み上げます。読み終えるまで戻りません。
type Speaker interface {
	Speak(ctx context.Context, text, voice string) error
}

// playerArgs は、プレイヤーごとに、ファイルを鳴らして終わるまで待つ引数を返します。
func playerArgs(player, file string) []string {
	switch filepath.Base(player) {
	case "aplay":
		return []string{"-q", file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", file}
	default:
		return []string{file}
	}
}
