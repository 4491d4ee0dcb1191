package renderer

import (
	"context"
	"sync"

	"github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
)

// Presenter は、モデルの1ターン分のイベントをプレイヤーに見せます。
type Presenter interface {
	// Present はイベントを表示します。speaker は話し手で、語り手なら nil です。
	Present(ctx context.Context, ev event.Event, speaker *hustler.Hustler) error
	// Announce はモデルを介さない固定の文言を表示します。
	Announce(text string)
}

// Renderer は、会話のレンダリングを行うコンポーネントが満たすべきインターフェースです。
type Renderer interface {
	// Render は、会話のメインループ中のレンダリング処理を開始します。
	Render(bus bus.Bus, wg *sync.WaitGroup) error

	// Finalize は、セッションが終わった後の最終処理を行います。
	Finalize(hustlers []*hustler.Hustler) error
}
