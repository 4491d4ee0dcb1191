package turn

import (
	"context"
)

// Manager は、モデルへの問い合わせ（ターン）を一度に一つだけに制限します。
// ターンが重なると会話履歴の順序が崩れるため、問い合わせは必ず Acquire してから行います。
type Manager interface {
	Acquire(ctx context.Context) error
	Release()
}

// Do は、ターンを取得して fn を実行し、終わったら解放します。
func Do(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if err := m.Acquire(ctx); err != nil {
		return err
	}
	defer m.Release()
	return fn(ctx)
}
