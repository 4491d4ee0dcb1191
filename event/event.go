package event

import (
	"strings"
)

// Intent は、会話中のプレイヤーの意図をモデルがどう解釈したかを表します。
type Intent string

const (
	IntentContinue        Intent = "continue"
	IntentLeavingOpponent Intent = "leaving_opponent"
	IntentLeavingPark     Intent = "leaving_park"
	IntentStay            Intent = "stay"
)

// Intents は、モデルとの契約で許される値の一覧です。
var Intents = []Intent{IntentContinue, IntentLeavingOpponent, IntentLeavingPark, IntentStay}

// Valid は、契約上の値かどうかを返します。
func (i Intent) Valid() bool {
	for _, v := range Intents {
		if i == v {
			return true
		}
	}
	return false
}

// Leaving は、席を立つか公園を去る意図かどうかを返します。
func (i Intent) Leaving() bool {
	return i == IntentLeavingOpponent || i == IntentLeavingPark
}

const (
	// ActionSelectHustler は、まだ誰にも近づいていない状態の next_action です。
	ActionSelectHustler = "select_hustler"
	// ApproachPrefix に続けてハスラーの ID を書くと、そのテーブルへ向かいます。
	ApproachPrefix = "approach_"
)

// Game status values reported by the board tool.
const (
	StatusOngoing   = "ongoing"
	StatusCheckmate = "checkmate"
	StatusStalemate = "stalemate"
	StatusDraw      = "draw"
)

// Event は、モデルの1ターン分の出力を構造化したものです。
// 公園フェーズでは Speaker と NextAction、対話フェーズでは PlayerIntent が意味を持ちます。
type Event struct {
	Narrative     string `json:"narrative"`
	Speaker       string `json:"speaker,omitempty"`
	SpokenDisplay string `json:"spoken_display"`
	SpokenTTS     string `json:"spoken_tts"`
	NextAction    string `json:"next_action,omitempty"`
	PlayerIntent  Intent `json:"player_intent,omitempty"`

	// 対局中のみ。ボードツールの結果をモデルがそのまま書き写したものです。
	FEN         string `json:"fen,omitempty"`
	GameStatus  string `json:"game_status,omitempty"`
	PlayerMove  string `json:"player_move,omitempty"`
	HustlerMove string `json:"hustler_move,omitempty"`
}

// ApproachTarget は、next_action が approach_<id> の場合にその ID を返します。
func (e Event) ApproachTarget() (string, bool) {
	action := strings.TrimSpace(e.NextAction)
	if !strings.HasPrefix(action, ApproachPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(action, ApproachPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// HasGame は、対局情報を含んでいるかどうかを返します。
func (e Event) HasGame() bool {
	return e.FEN != "" || e.PlayerMove != "" || e.HustlerMove != ""
}

// Silent は、誰も喋っていないイベントかどうかを返します。
func (e Event) Silent() bool {
	return strings.TrimSpace(e.SpokenDisplay) == "" && strings.TrimSpace(e.SpokenTTS) == ""
}
