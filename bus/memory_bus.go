package bus

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/AnglerfishChess/chessplaza/message"
)

// ErrClosed は、閉じたバスに送信しようとした場合に返されます。
var ErrClosed = errors.New("bus is closed")

// DefaultBuffer は購読者ごとのチャネルバッファの既定値です。
const DefaultBuffer = 256

// MemoryBus は bus.Bus インターフェースのインメモリ実装です。
// ブロードキャストされたメッセージを、すべての購読者のチャネルへ配送します。
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers []chan *message.Message
	buffer      int
	closed      bool

	dropped atomic.Int64
}

// NewMemoryBus は新しい MemoryBus を生成します。
// buffer が0以下の場合は DefaultBuffer を使います。
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &MemoryBus{buffer: buffer}
}

// Broadcast はメッセージをすべての購読者に配送します。
// セッションを止めないようにノンブロッキングで送り、受信が追いつかない購読者の分は捨てます。
func (b *MemoryBus) Broadcast(m *message.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- m:
		default:
			b.dropped.Add(1)
			slog.Debug("bus subscriber is full, message dropped", "kind", m.Kind)
		}
	}
	return nil
}

// Subscribe は新しい購読者を追加し、メッセージを受信するためのチャネルを返します。
// 既に閉じられている場合は、閉じたチャネルを返します。
func (b *MemoryBus) Subscribe() <-chan *message.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *message.Message, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close はバスを閉じ、すべての購読者チャネルをクローズします。二度目以降は何もしません。
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// Dropped は、これまでに捨てたメッセージ数を返します。
func (b *MemoryBus) Dropped() int64 {
	return b.dropped.Load()
}

var _ Bus = (*MemoryBus)(nil)
