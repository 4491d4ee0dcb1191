package voice

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Gemini TTS が返す PCM の形式です。
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

// WriteWAV は 16bit リトルエンディアンの PCM に WAV ヘッダーを付けて書き出します。
func WriteWAV(w io.Writer, pcm []byte, sampleRate int) error {
	blockAlign := Channels * BitsPerSample / 8
	header := struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	}{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("voice.WriteWAV: %w", err)
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("voice.WriteWAV: %w", err)
	}
	return nil
}
