package session

import (
	"fmt"
	"strings"

	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
)

// Phase はセッションの局面です。
type Phase int

const (
	// PhasePark は公園を歩いている状態です。話し相手はいません。
	PhasePark Phase = iota
	// PhaseDialog はハスラーのテーブルに着いている状態です。
	PhaseDialog
	// PhaseConfirmLeave は、席を立つつもりか本人に聞き返している状態です。
	PhaseConfirmLeave
	// PhaseEnded は終端です。
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhasePark:
		return "park"
	case PhaseDialog:
		return "dialog"
	case PhaseConfirmLeave:
		return "confirm_leave"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State はセッションが持つ唯一の可変状態です。
type State struct {
	Phase Phase
	// Hustler は Dialog と ConfirmLeave のときだけ設定されます。
	Hustler *hustler.Hustler
	// Trigger は ConfirmLeave に入るきっかけになった意図です。
	Trigger event.Intent
}

func (s State) String() string {
	if s.Hustler == nil {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%s)", s.Phase, s.Hustler.ID)
}

// Topology は、モデルとの会話をどう張るかの方式です。
type Topology int

const (
	// Unified は一つの会話で語り手と全ハスラーを演じさせ、発話に役割マーカーを付けます。
	Unified Topology = iota
	// Split はフェーズが変わるたびに新しい会話を開きます。
	Split
)

func (t Topology) String() string {
	if t == Split {
		return "split"
	}
	return "unified"
}

// ParseTopology は設定値の文字列を Topology にします。
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unified":
		return Unified, nil
	case "split":
		return Split, nil
	default:
		return Unified, fmt.Errorf("session.ParseTopology: unknown topology %q", s)
	}
}

// LeavePhrases は、公園にいるときモデルを呼ばずに帰る合図とみなす言葉です。
var LeavePhrases = []string{"leave", "exit", "quit", "go home", "goodbye", "bye", "i'm out", "gotta go"}

// IsLeavePhrase は、大文字小文字を無視して LeavePhrases のどれかを含むかを返します。
func IsLeavePhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range LeavePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
