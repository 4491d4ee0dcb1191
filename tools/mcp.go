package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCP サーバーの名前とバージョンです。
const (
	ServerName    = "plaza"
	ServerVersion = "1.0.0"
)

// MoveInput は make_move の引数です。
type MoveInput struct {
	Move string `json:"move" jsonschema:"the move in SAN (Nf3) or UCI (g1f3) notation"`
}

// HustlerInput は engine_configure の引数です。
type HustlerInput struct {
	Hustler string `json:"hustler" jsonschema:"the hustler id whose strength the engine should take"`
}

// FENInput は engine_set_position の引数です。
type FENInput struct {
	FEN string `json:"fen" jsonschema:"the position in FEN"`
}

// NoInput は引数のないツールの入力です。
type NoInput struct{}

// NewMCPServer は Toolbox のツールを MCP サーバーに登録します。
func NewMCPServer(t *Toolbox) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	for _, spec := range t.Specs() {
		switch spec.Name {
		case MakeMove:
			addTool(server, t, spec, func(in MoveInput) map[string]any {
				return map[string]any{"move": in.Move}
			})
		case EngineConfigure:
			addTool(server, t, spec, func(in HustlerInput) map[string]any {
				return map[string]any{"hustler": in.Hustler}
			})
		case EngineSetPosition:
			addTool(server, t, spec, func(in FENInput) map[string]any {
				return map[string]any{"fen": in.FEN}
			})
		default:
			addTool(server, t, spec, func(NoInput) map[string]any { return nil })
		}
	}
	return server
}

func addTool[In any](server *mcp.Server, t *Toolbox, spec Spec, args func(In) map[string]any) {
	name := spec.Name
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: spec.Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, map[string]any, error) {
			out, err := t.Call(ctx, name, args(in))
			if err != nil {
				return nil, nil, err
			}
			return nil, out, nil
		})
}

// ServeMCP は transport 上で MCP サーバーを動かします。ctx が終わると nil を返して止まります。
func ServeMCP(ctx context.Context, t *Toolbox, transport mcp.Transport) error {
	err := NewMCPServer(t).Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tools.ServeMCP: %w", err)
	}
	return nil
}
