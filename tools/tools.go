package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AnglerfishChess/chessplaza/board"
	"github.com/AnglerfishChess/chessplaza/engine"
	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
)

// ErrUnknownTool は、存在しないツールが呼ばれたことを表します。
var ErrUnknownTool = errors.New("unknown tool")

// ツール名です。
const (
	NewGame         = "new_game"
	MakeMove        = "make_move"
	GetPosition     = "get_position"
	GetLegalMoves   = "get_legal_moves"
	EngineConfigure   = "engine_configure"
	EngineSetPosition = "engine_set_position"
	EngineBestMove    = "engine_best_move"
)

// Engine は、Toolbox が使う UCI エンジンの操作です。
type Engine interface {
	Configure(options map[string]string) error
	SetPosition(fen string) error
	BestMove(ctx context.Context, fen string) (engine.Move, error)
}

// Param はツールの引数です。引数はすべて文字列です。
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Spec はモデルに公開するツールの宣言です。
type Spec struct {
	Name        string
	Description string
	Params      []Param
}

// Toolbox は盤面とエンジンをツールとしてモデルに公開します。
type Toolbox struct {
	board    *board.Board
	engine   Engine
	registry *hustler.Registry
}

// New は新しい Toolbox を生成します。エンジンがない場合は eng に nil を渡します。
func New(b *board.Board, eng Engine, registry *hustler.Registry) *Toolbox {
	return &Toolbox{
		board:    b,
		engine:   eng,
		registry: registry,
	}
}

// Specs は公開するツールの一覧を返します。
func (t *Toolbox) Specs() []Spec {
	specs := []Spec{
		{
			Name:        NewGame,
			Description: "Start a new chess game. Resets the board to the starting position.",
		},
		{
			Name:        MakeMove,
			Description: "Make a move on the board. Accepts SAN (e4, Nf3, O-O) or UCI (e2e4, g1f3). Use it for the player's moves and for yours.",
			Params: []Param{
				{Name: "move", Description: "The move in SAN or UCI notation", Required: true},
			},
		},
		{
			Name:        GetPosition,
			Description: "Get the current board position as FEN, with the game status and the side to move.",
		},
		{
			Name:        GetLegalMoves,
			Description: "Get all legal moves in the current position, in SAN.",
		},
	}
	if t.engine == nil {
		return specs
	}
	return append(specs,
		Spec{
			Name:        EngineConfigure,
			Description: "Set the engine strength to a hustler's level. Call it once before the game starts.",
			Params: []Param{
				{Name: "hustler", Description: "The hustler id, for example eddie", Required: true},
			},
		},
		Spec{
			Name:        EngineSetPosition,
			Description: "Set up a position from FEN on the board and in the engine, for a puzzle or an adjourned game.",
			Params: []Param{
				{Name: "fen", Description: "The position in FEN", Required: true},
			},
		},
		Spec{
			Name:        EngineBestMove,
			Description: "Let the engine choose your reply in the current position and play it on the board.",
		},
	)
}

// Describe はツール一覧をプロンプト用の文章にします。
func (t *Toolbox) Describe() string {
	var b strings.Builder
	for _, s := range t.Specs() {
		fmt.Fprintf(&b, "- %s", s.Name)
		if len(s.Params) > 0 {
			names := make([]string, 0, len(s.Params))
			for _, p := range s.Params {
				names = append(names, p.Name)
			}
			fmt.Fprintf(&b, "(%s)", strings.Join(names, ", "))
		}
		fmt.Fprintf(&b, ": %s\n", s.Description)
	}
	if t.engine != nil {
		b.WriteString("Play your own moves with engine_best_move, never by guessing.\n")
	}
	b.WriteString("Copy fen, game_status and the moves from the last tool result into your JSON reply.\n")
	return b.String()
}

// Call はツールを実行します。
// 不正な手やエンジンの不在はエラーにせず、モデルが語れるように結果のデータとして返します。
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	slog.DebugContext(ctx, "tool call", "tool", name, "args", args)

	switch name {
	case NewGame:
		return toMap(t.board.NewGame())
	case MakeMove:
		return toMap(t.board.MakeMove(stringArg(args, "move")))
	case GetPosition:
		return toMap(t.board.Position())
	case GetLegalMoves:
		return toMap(t.board.LegalMoves())
	case EngineConfigure:
		return t.configure(stringArg(args, "hustler"))
	case EngineSetPosition:
		return t.setPosition(stringArg(args, "fen"))
	case EngineBestMove:
		return t.bestMove(ctx)
	default:
		return nil, fmt.Errorf("tools.Toolbox.Call: %w: %q", ErrUnknownTool, name)
	}
}

func (t *Toolbox) configure(id string) (map[string]any, error) {
	if t.engine == nil {
		return failure("No engine is attached; play the moves yourself."), nil
	}
	h, err := t.registry.Lookup(id)
	if err != nil {
		return failure(fmt.Sprintf("Unknown hustler: %s", id)), nil
	}

	options := h.UCIOptions()
	if err := t.engine.Configure(options); err != nil {
		slog.Warn("engine configure failed", "hustler", id, "error", err)
		return failure(fmt.Sprintf("Engine error: %v", err)), nil
	}
	return map[string]any{
		"configured": true,
		"hustler":    h.ID,
		"elo":        h.Elo,
	}, nil
}

func (t *Toolbox) setPosition(fen string) (map[string]any, error) {
	if t.engine == nil {
		return failure("No engine is attached; play the moves yourself."), nil
	}
	st, err := t.board.Load(fen)
	if err != nil {
		return failure(fmt.Sprintf("Invalid FEN: %s", fen)), nil
	}
	if err := t.engine.SetPosition(st.FEN); err != nil {
		slog.Warn("engine set position failed", "fen", st.FEN, "error", err)
		return failure(fmt.Sprintf("Engine error: %v", err)), nil
	}
	return toMap(st)
}

func (t *Toolbox) bestMove(ctx context.Context) (map[string]any, error) {
	if t.engine == nil {
		return failure("No engine is attached; play the moves yourself."), nil
	}
	pos := t.board.Position()
	if pos.GameStatus != event.StatusOngoing {
		return failure(fmt.Sprintf("The game is over: %s", pos.GameStatus)), nil
	}

	mv, err := t.engine.BestMove(ctx, pos.FEN)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("tools.Toolbox.Call: %w", err)
		}
		slog.Warn("engine search failed", "fen", pos.FEN, "error", err)
		return failure(fmt.Sprintf("Engine error: %v", err)), nil
	}
	return toMap(t.board.MakeMove(mv.UCI))
}

func failure(msg string) map[string]any {
	return map[string]any{
		"valid": false,
		"error": msg,
	}
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// toMap は構造体を JSON のキー名のまま map に直します。
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tools.toMap: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("tools.toMap: %w", err)
	}
	return m, nil
}
