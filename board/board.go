package board

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/notnil/chess"

	"github.com/AnglerfishChess/chessplaza/event"
)

// State は、盤面の状態を表すツールの応答です。
type State struct {
	FEN        string `json:"fen"`
	GameStatus string `json:"game_status"`
	Turn       string `json:"turn,omitempty"`
}

// MoveResult は、MakeMove の結果です。
// 不正な指し手はエラーではなく Valid=false として返し、モデルに語らせます。
type MoveResult struct {
	Valid      bool   `json:"valid"`
	SAN        string `json:"san,omitempty"`
	UCI        string `json:"uci,omitempty"`
	FEN        string `json:"fen"`
	GameStatus string `json:"game_status"`
	Turn       string `json:"turn,omitempty"`
	Error      string `json:"error,omitempty"`
}

// LegalMoves は、現局面の合法手一覧（SAN）です。
type LegalMoves struct {
	Moves []string `json:"legal_moves"`
	Count int      `json:"count"`
}

// Board は一局分の盤面を保持します。
// モデルから呼ばれるツールと MCP サーバーが同じ盤面を共有するため、操作は排他にしています。
type Board struct {
	mu   sync.Mutex
	game *chess.Game
}

// New は初期局面の Board を生成します。
func New() *Board {
	return &Board{game: chess.NewGame()}
}

// NewGame は盤面を初期局面に戻します。
func (b *Board) NewGame() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.game = chess.NewGame()
	return b.state()
}

// Load は FEN で指定された局面から対局を始めます。
func (b *Board) Load(fen string) (State, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return State{}, fmt.Errorf("board.Board.Load: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.game = chess.NewGame(opt)
	return b.state(), nil
}

var (
	uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)
	sanPattern = regexp.MustCompile(`^(O-O(-O)?|0-0(-0)?|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=?[QRBN])?)[+#]?[!?]*$`)
)

// MakeMove は指し手を盤面に適用します。座標形式（g1f3）なら UCI として、それ以外は SAN（Nf3, e4, O-O）として読みます。
func (b *Board) MakeMove(text string) MoveResult {
	text = strings.TrimSpace(text)

	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.game.Position()
	valid := b.game.ValidMoves()

	// 座標形式は SAN のデコーダに渡すと別の手として読まれるので、合法手との照合だけで決める
	coordinate := uciPattern.MatchString(strings.ToLower(text))
	var legal *chess.Move
	if coordinate {
		legal = findUCI(valid, text)
	} else if m, err := (chess.AlgebraicNotation{}).Decode(pos, text); err == nil {
		legal = m
	}
	if legal == nil {
		if coordinate || sanPattern.MatchString(text) {
			return b.rejected(fmt.Sprintf("Illegal move: %s", text))
		}
		return b.rejected(fmt.Sprintf("Invalid notation: %s", text))
	}

	san := chess.AlgebraicNotation{}.Encode(pos, legal)
	uci := chess.UCINotation{}.Encode(pos, legal)
	if err := b.game.Move(legal); err != nil {
		return b.rejected(fmt.Sprintf("Illegal move: %s", text))
	}

	st := b.state()
	return MoveResult{
		Valid:      true,
		SAN:        san,
		UCI:        uci,
		FEN:        st.FEN,
		GameStatus: st.GameStatus,
		Turn:       st.Turn,
	}
}

// Position は現在の局面を返します。
func (b *Board) Position() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state()
}

// FEN は現在の局面の FEN を返します。
func (b *Board) FEN() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.game.FEN()
}

// LegalMoves は現局面の合法手を返します。
func (b *Board) LegalMoves() LegalMoves {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.game.Position()
	valid := b.game.ValidMoves()
	moves := make([]string, 0, len(valid))
	for _, m := range valid {
		moves = append(moves, chess.AlgebraicNotation{}.Encode(pos, m))
	}
	return LegalMoves{Moves: moves, Count: len(moves)}
}

// SAN は、UCI 形式の指し手を現局面での SAN に変換します。盤面は変更しません。
func (b *Board) SAN(uci string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	legal := findUCI(b.game.ValidMoves(), uci)
	if legal == nil {
		return "", fmt.Errorf("board.Board.SAN: illegal move %q", uci)
	}
	return chess.AlgebraicNotation{}.Encode(b.game.Position(), legal), nil
}

func (b *Board) rejected(reason string) MoveResult {
	st := b.state()
	return MoveResult{
		Valid:      false,
		Error:      reason,
		FEN:        st.FEN,
		GameStatus: st.GameStatus,
	}
}

// state は呼び出し側でロックを取っている前提です。
func (b *Board) state() State {
	return State{
		FEN:        b.game.FEN(),
		GameStatus: status(b.game),
		Turn:       turn(b.game.Position()),
	}
}

func findUCI(valid []*chess.Move, text string) *chess.Move {
	text = strings.ToLower(strings.TrimSpace(text))
	if !uciPattern.MatchString(text) {
		return nil
	}
	for _, v := range valid {
		if v.String() == text {
			return v
		}
	}
	return nil
}

func status(g *chess.Game) string {
	switch g.Method() {
	case chess.Checkmate:
		return event.StatusCheckmate
	case chess.Stalemate:
		return event.StatusStalemate
	}
	if g.Outcome() == chess.Draw {
		return event.StatusDraw
	}
	for _, m := range g.EligibleDraws() {
		if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
			return event.StatusDraw
		}
	}
	return event.StatusOngoing
}

func turn(pos *chess.Position) string {
	if pos.Turn() == chess.White {
		return "white"
	}
	return "black"
}

// Draw は FEN の局面を ASCII の盤面図にします。
func Draw(fen string) (string, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return "", fmt.Errorf("board.Draw: %w", err)
	}
	return chess.NewGame(opt).Position().Board().Draw(), nil
}
