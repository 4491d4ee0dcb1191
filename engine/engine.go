package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// DefaultMoveTime は一手あたりの思考時間の既定値です。
const DefaultMoveTime = time.Second

// Move はエンジンの最善手です。
type Move struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

// Engine は外部の UCI エンジンプロセスを包みます。
type Engine struct {
	mu       sync.Mutex
	eng      *uci.Engine
	moveTime time.Duration
	path     string
}

// Option は Engine の任意設定です。
type Option func(*Engine)

// WithMoveTime は一手あたりの思考時間を設定します。
func WithMoveTime(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.moveTime = d
		}
	}
}

// Start はエンジンを起動し、UCI の初期化を済ませます。
func Start(path string, opts ...Option) (*Engine, error) {
	eng, err := uci.New(path)
	if err != nil {
		return nil, fmt.Errorf("engine.Start: %w", err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("engine.Start: handshake with %s: %w", path, err)
	}

	e := &Engine{
		eng:      eng,
		moveTime: DefaultMoveTime,
		path:     path,
	}
	for _, opt := range opts {
		opt(e)
	}
	slog.Debug("UCI engine started", "path", path, "options", len(eng.Options()))
	return e, nil
}

// Configure は setoption をそのまま転送します。
// エンジンが知らないオプションは送らずに読み飛ばします。
func (e *Engine) Configure(options map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	supported, skipped := Supported(e.eng.Options(), options)
	for _, name := range skipped {
		slog.Debug("UCI option not supported, skipped", "engine", e.path, "option", name)
	}

	cmds := make([]uci.Cmd, 0, len(supported)+1)
	for _, name := range sortedKeys(supported) {
		cmds = append(cmds, uci.CmdSetOption{Name: name, Value: supported[name]})
	}
	if len(cmds) == 0 {
		return nil
	}
	cmds = append(cmds, uci.CmdIsReady)
	if err := e.eng.Run(cmds...); err != nil {
		return fmt.Errorf("engine.Engine.Configure: %w", err)
	}
	return nil
}

// SetPosition はエンジンに局面を送ります。
func (e *Engine) SetPosition(fen string) error {
	pos, err := position(fen)
	if err != nil {
		return fmt.Errorf("engine.Engine.SetPosition: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.eng.Run(uci.CmdPosition{Position: pos}); err != nil {
		return fmt.Errorf("engine.Engine.SetPosition: %w", err)
	}
	return nil
}

// BestMove は fen の局面での最善手を探します。
// 探索は設定した思考時間で終わるので、途中で止める手段はありません。
func (e *Engine) BestMove(ctx context.Context, fen string) (Move, error) {
	if err := ctx.Err(); err != nil {
		return Move{}, err
	}

	pos, err := position(fen)
	if err != nil {
		return Move{}, fmt.Errorf("engine.Engine.BestMove: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.eng.Run(uci.CmdPosition{Position: pos}, uci.CmdGo{MoveTime: e.moveTime}); err != nil {
		return Move{}, fmt.Errorf("engine.Engine.BestMove: %w", err)
	}
	best := e.eng.SearchResults().BestMove
	if best == nil {
		return Move{}, fmt.Errorf("engine.Engine.BestMove: no move in position %s", fen)
	}
	return Move{
		UCI: best.String(),
		SAN: chess.AlgebraicNotation{}.Encode(pos, best),
	}, nil
}

// Close はエンジンプロセスを終了します。
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Close()
}

// Supported は、要求されたオプションをエンジンが公開しているものとそれ以外に分けます。
// 名前の大文字小文字は区別せず、エンジン側の表記に揃えます。
func Supported(advertised map[string]uci.Option, requested map[string]string) (map[string]string, []string) {
	byLower := make(map[string]string, len(advertised))
	for name := range advertised {
		byLower[strings.ToLower(name)] = name
	}

	supported := make(map[string]string)
	var skipped []string
	for name, value := range requested {
		if canonical, ok := byLower[strings.ToLower(name)]; ok {
			supported[canonical] = value
			continue
		}
		skipped = append(skipped, name)
	}
	sort.Strings(skipped)
	return supported, skipped
}

func position(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return chess.NewGame(opt).Position(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
