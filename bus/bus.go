package bus

import (
	"github.com/AnglerfishChess/chessplaza/message"
)

// Busはメッセージの送受信責務を持つ
type Bus interface {
	Broadcast(m *message.Message) error
	Subscribe() <-chan *message.Message
	Close()
}
