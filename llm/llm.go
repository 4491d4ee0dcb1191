package llm

import (
	"context"
	"errors"

	"github.com/AnglerfishChess/chessplaza/tools"
)

// MaxToolRounds は、一回の Send で許すツール呼び出しの往復数です。
const MaxToolRounds = 8

// DefaultTemperature は、キャラクターを演じさせるときの温度です。
const DefaultTemperature = 0.8

// ErrToolLoop は、ツール呼び出しが MaxToolRounds を超えて終わらなかったことを表します。
var ErrToolLoop = errors.New("tool calls did not settle")

type LLM interface {
	// Generate は履歴を持たない一回きりの応答を返します。
	Generate(ctx context.Context, input GenerateInput) (string, error)
}

type GenerateInput struct {
	SystemPrompt string
	Message      string
}

// Dialer は、システムプロンプトを固定した会話を開きます。
type Dialer interface {
	Dial(ctx context.Context, systemPrompt string) (Conversation, error)
}

// Conversation は自分の履歴を持つ一つの会話です。
// Send は送った順に一つずつ呼ばれる前提で、並行呼び出しには対応しません。
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}

// ToolCaller は、モデルが呼び出せるツールの集合です。
type ToolCaller interface {
	Specs() []tools.Spec
	Call(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

type options struct {
	tools       ToolCaller
	temperature float32
}

// Option はモデルクライアントの任意設定です。
type Option func(*options)

// WithTools は、会話中にモデルがツールを呼べるようにします。
func WithTools(t ToolCaller) Option {
	return func(o *options) {
		o.tools = t
	}
}

// WithTemperature はサンプリング温度を設定します。
func WithTemperature(t float32) Option {
	return func(o *options) {
		o.temperature = t
	}
}

func newOptions(opts []Option) options {
	o := options{temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// callTool はツールを実行します。存在しないツールはモデルへのエラー結果にして会話を続けます。
func callTool(ctx context.Context, tc ToolCaller, name string, args map[string]any) (map[string]any, error) {
	out, err := tc.Call(ctx, name, args)
	if errors.Is(err, tools.ErrUnknownTool) {
		return map[string]any{"error": err.Error()}, nil
	}
	return out, err
}

// generate は Dial と Send で Generate を組み立てます。
func generate(ctx context.Context, d Dialer, input GenerateInput) (string, error) {
	conv, err := d.Dial(ctx, input.SystemPrompt)
	if err != nil {
		return "", err
	}
	return conv.Send(ctx, input.Message)
}
