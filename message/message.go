package message

import (
	"time"

	"github.com/AnglerfishChess/chessplaza/hustler"
)

// Message は、画面に出した一行分の記録です。
// トランスクリプトなど、バスの購読者に配送されます。
type Message struct {
	// From は話し手です。語り手やシステムの場合は nil です。
	From *hustler.Hustler
	Text string
	At   time.Time
	Kind Kind
	Meta map[string]string
}

// IsSystemMessage は、システムからの通知かどうかを返します。
func (m *Message) IsSystemMessage() bool {
	return m.Kind == KindSystem
}

// Speaker は表示用の話し手の名前を返します。
func (m *Message) Speaker() string {
	switch {
	case m.Kind == KindPlayer:
		return "You"
	case m.From != nil:
		return m.From.DisplayName
	default:
		return ""
	}
}
