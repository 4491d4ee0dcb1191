package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/AnglerfishChess/chessplaza/tools"
)

// OpenAIConfig は OpenAI 互換 API の接続設定です。
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewOpenAI(cfg OpenAIConfig, opts ...Option) *OpenAI {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  cfg.Model,
		opts:   newOptions(opts),
	}
}

type OpenAI struct {
	client openai.Client
	model  string
	opts   options
}

func (o *OpenAI) Generate(ctx context.Context, input GenerateInput) (string, error) {
	out, err := generate(ctx, o, input)
	if err != nil {
		return "", fmt.Errorf("llm.OpenAI.Generate: %w", err)
	}
	return out, nil
}

func (o *OpenAI) Dial(_ context.Context, systemPrompt string) (Conversation, error) {
	var specs []tools.Spec
	if o.opts.tools != nil {
		specs = o.opts.tools.Specs()
	}
	return &openAIConversation{
		o:     o,
		tools: openAITools(specs),
		history: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
		},
	}, nil
}

type openAIConversation struct {
	o       *OpenAI
	tools   []openai.ChatCompletionToolParam
	history []openai.ChatCompletionMessageParamUnion
}

func (c *openAIConversation) Send(ctx context.Context, text string) (string, error) {
	mark := len(c.history)
	c.history = append(c.history, openai.UserMessage(text))

	for round := 0; round < MaxToolRounds; round++ {
		completion, err := c.o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(c.o.model),
			Messages:    c.history,
			Tools:       c.tools,
			Temperature: openai.Float(float64(c.o.opts.temperature)),
		})
		if err != nil {
			c.history = c.history[:mark]
			return "", fmt.Errorf("llm.OpenAI.Send: %w", err)
		}
		if len(completion.Choices) == 0 {
			slog.WarnContext(ctx, "openai returned no choices", "model", c.o.model)
			c.history = c.history[:mark]
			return "", nil
		}

		msg := completion.Choices[0].Message
		c.history = append(c.history, msg.ToParam())
		if len(msg.ToolCalls) == 0 || c.o.opts.tools == nil {
			return msg.Content, nil
		}

		for _, call := range msg.ToolCalls {
			args, err := decodeArguments(call.Function.Arguments)
			if err != nil {
				slog.WarnContext(ctx, "tool arguments are not JSON", "tool", call.Function.Name, "error", err)
			}
			out, err := callTool(ctx, c.o.opts.tools, call.Function.Name, args)
			if err != nil {
				c.history = c.history[:mark]
				return "", fmt.Errorf("llm.OpenAI.Send: %w", err)
			}
			data, err := json.Marshal(out)
			if err != nil {
				c.history = c.history[:mark]
				return "", fmt.Errorf("llm.OpenAI.Send: %w", err)
			}
			c.history = append(c.history, openai.ToolMessage(string(data), call.ID))
		}
	}

	c.history = c.history[:mark]
	return "", fmt.Errorf("llm.OpenAI.Send: %w", ErrToolLoop)
}

func openAITools(specs []tools.Spec) []openai.ChatCompletionToolParam {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, s := range specs {
		properties := map[string]any{}
		required := []string{}
		for _, p := range s.Params {
			properties[p.Name] = map[string]any{
				"type":        "string",
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": properties,
					"required":   required,
				},
			},
		})
	}
	return out
}

// decodeArguments は壊れた引数でも空の map を返し、ツール側のエラー結果に任せます。
func decodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}, err
	}
	return args, nil
}

var (
	_ LLM    = &OpenAI{}
	_ Dialer = &OpenAI{}
)
