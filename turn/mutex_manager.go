package turn

import (
	"context"
	"fmt"
)

// MutexManager は turn.Manager の実装です。
// バッファサイズ1のチャネルをセマフォとして使います。
type MutexManager struct {
	turnCh chan struct{}
}

// NewMutexManager は新しい MutexManager を生成します。
func NewMutexManager() *MutexManager {
	return &MutexManager{
		turnCh: make(chan struct{}, 1),
	}
}

// Acquire はターンを取得します。
// 既に誰かがターンを保持している場合は、解放されるか ctx が終わるまで待ちます。
func (m *MutexManager) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire turn: %w", ctx.Err())
	case m.turnCh <- struct{}{}:
		return nil
	}
}

// Release は保持しているターンを解放します。
// 取得していない状態で呼んでも何もしません。
func (m *MutexManager) Release() {
	select {
	case <-m.turnCh:
	default:
	}
}

// Busy は、いまターンが保持されているかどうかを返します。
func (m *MutexManager) Busy() bool {
	return len(m.turnCh) == 1
}

var _ Manager = (*MutexManager)(nil)
