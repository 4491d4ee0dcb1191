package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/AnglerfishChess/chessplaza/tools"
)

// GeminiConfig は Gemini クライアントの接続設定です。
// APIKey があれば Gemini API、なければ Vertex AI（Project, Location）を使います。
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
	Model    string
	// BaseURL はエンドポイントの差し替え用です。
	BaseURL string
}

func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...Option) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIKey == "" {
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm.NewGemini: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		opts:   newOptions(opts),
	}, nil
}

type Gemini struct {
	client *genai.Client
	model  string
	opts   options
}

// Client は音声合成と共有するための genai クライアントを返します。
func (g *Gemini) Client() *genai.Client {
	return g.client
}

func (g *Gemini) Generate(ctx context.Context, input GenerateInput) (string, error) {
	out, err := generate(ctx, g, input)
	if err != nil {
		return "", fmt.Errorf("llm.Gemini.Generate: %w", err)
	}
	return out, nil
}

func (g *Gemini) Dial(_ context.Context, systemPrompt string) (Conversation, error) {
	temp := g.opts.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
		SystemInstruction: &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}
	if g.opts.tools != nil {
		cfg.Tools = geminiTools(g.opts.tools.Specs())
	} else {
		// ツールと JSON モードは併用できない
		cfg.ResponseMIMEType = "application/json"
	}

	return &geminiConversation{
		g:   g,
		cfg: cfg,
	}, nil
}

type geminiConversation struct {
	g       *Gemini
	cfg     *genai.GenerateContentConfig
	history []*genai.Content
}

func (c *geminiConversation) Send(ctx context.Context, text string) (string, error) {
	mark := len(c.history)
	c.history = append(c.history, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: text}},
	})

	for round := 0; round < MaxToolRounds; round++ {
		resp, err := c.g.client.Models.GenerateContent(ctx, c.g.model, c.history, c.cfg)
		if err != nil {
			c.history = c.history[:mark]
			return "", fmt.Errorf("llm.Gemini.Send: %w", err)
		}

		content := firstContent(resp)
		if content == nil {
			slog.WarnContext(ctx, "gemini returned no candidates", "model", c.g.model)
			c.history = c.history[:mark]
			return "", nil
		}
		c.history = append(c.history, content)

		calls := functionCalls(content)
		if len(calls) == 0 || c.g.opts.tools == nil {
			return extractText(resp), nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, fc := range calls {
			out, err := callTool(ctx, c.g.opts.tools, fc.Name, fc.Args)
			if err != nil {
				c.history = c.history[:mark]
				return "", fmt.Errorf("llm.Gemini.Send: %w", err)
			}
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: out,
			}})
		}
		c.history = append(c.history, &genai.Content{Role: genai.RoleUser, Parts: parts})
	}

	c.history = c.history[:mark]
	return "", fmt.Errorf("llm.Gemini.Send: %w", ErrToolLoop)
}

func geminiTools(specs []tools.Spec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		d := &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
		}
		if len(s.Params) > 0 {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: map[string]*genai.Schema{},
			}
			for _, p := range s.Params {
				schema.Properties[p.Name] = &genai.Schema{
					Type:        genai.TypeString,
					Description: p.Description,
				}
				if p.Required {
					schema.Required = append(schema.Required, p.Name)
				}
			}
			d.Parameters = schema
		}
		decls = append(decls, d)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func firstContent(res *genai.GenerateContentResponse) *genai.Content {
	if res == nil || len(res.Candidates) == 0 {
		return nil
	}
	return res.Candidates[0].Content
}

func functionCalls(c *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, p := range c.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 {
		return ""
	}
	// 最も確度が高い候補のテキスト部分のみ
	for _, c := range res.Candidates {
		if c.Content == nil {
			continue
		}
		var text string
		for _, p := range c.Content.Parts {
			if p.Text != "" && !p.Thought {
				text += p.Text
			}
		}
		if text != "" {
			return text
		}
	}
	return ""
}

var (
	_ LLM    = &Gemini{}
	_ Dialer = &Gemini{}
)
