package hustler

import "strconv"

// Hustler は、公園でチェスを指すキャラクター（ペルソナ）を定義します。
// この情報は、LLMに渡すプロンプトと、UCIエンジンの強さ設定のベースとなります。
type Hustler struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"displayName"`
	// Voice は TTS のプリセット音声名です。
	Voice string `yaml:"voice"`
	// Elo は目標とする棋力です。エンジンの Skill Level に変換されます。
	Elo   int    `yaml:"elo"`
	Color string `yaml:"color,omitempty"`
	// Prompt は三人称で書かれた人物像です。
	Prompt string `yaml:"prompt"`
	// EngineOptions は UCI の setoption にそのまま渡されます。
	EngineOptions map[string]string `yaml:"engineOptions,omitempty"`
}

const (
	minElo      = 1000
	maxElo      = 2800
	maxSkill    = 20
	skillOption = "Skill Level"
)

// SkillLevel は Elo を Stockfish 互換の Skill Level (0〜20) に変換します。
func SkillLevel(elo int) int {
	skill := (elo - minElo) * maxSkill / (maxElo - minElo)
	if skill < 0 {
		return 0
	}
	if skill > maxSkill {
		return maxSkill
	}
	return skill
}

// UCIOptions は、このハスラー用のエンジン設定を返します。
// Elo から求めた Skill Level に、YAML の engineOptions を上書きで重ねます。
func (h *Hustler) UCIOptions() map[string]string {
	opts := map[string]string{
		skillOption: strconv.Itoa(SkillLevel(h.Elo)),
	}
	for k, v := range h.EngineOptions {
		opts[k] = v
	}
	return opts
}
