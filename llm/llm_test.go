package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/AnglerfishChess/chessplaza/board"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/tools"
)

// scriptedServer は用意した応答を順番に返し、受け取ったリクエストを記録します。
type scriptedServer struct {
	mu        sync.Mutex
	suffix    string
	responses []string
	status    int
	requests  []string
}

func (s *scriptedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	s.requests = append(s.requests, string(body))
	if !strings.HasSuffix(r.URL.Path, s.suffix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	if s.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`)
		return
	}
	if len(s.responses) == 0 {
		http.Error(w, "no scripted response left", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, s.responses[0])
	s.responses = s.responses[1:]
}

func testToolbox() (*tools.Toolbox, *board.Board) {
	b := board.New()
	r := hustler.NewRegistry()
	r.Register(&hustler.Hustler{ID: "eddie", DisplayName: "Fast Eddie"})
	return tools.New(b, nil, r), b
}

func TestGeminiToolsDeclaration(t *testing.T) {
	got := geminiTools([]tools.Spec{
		{Name: "get_position", Description: "Get it"},
		{Name: "make_move", Description: "Move", Params: []tools.Param{{Name: "move", Description: "SAN", Required: true}}},
	})
	if len(got) != 1 || len(got[0].FunctionDeclarations) != 2 {
		t.Fatalf("unexpected declarations: %+v", got)
	}
	if got[0].FunctionDeclarations[0].Parameters != nil {
		t.Error("a tool without params should have no schema")
	}
	schema := got[0].FunctionDeclarations[1].Parameters
	if schema.Type != genai.TypeObject || schema.Properties["move"].Type != genai.TypeString {
		t.Fatalf("schema = %+v", schema)
	}
	if diff := cmp.Diff([]string{"move"}, schema.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if geminiTools(nil) != nil {
		t.Error("no specs should declare no tools")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		res  *genai.GenerateContentResponse
		want string
	}{
		{"nil", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			name: "joins text parts and skips thoughts",
			res: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: `{"narrative":`},
					{Text: `"x"}`},
				}},
			}}},
			want: `{"narrative":"x"}`,
		},
		{
			name: "falls back to later candidates",
			res: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{Name: "new_game"}}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}}}},
			}},
			want: "hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.res); got != tt.want {
				t.Fatalf("extractText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeminiSendRunsToolLoop(t *testing.T) {
	srv := &scriptedServer{
		suffix: ":generateContent",
		responses: []string{
			`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"make_move","args":{"move":"e4"}}}]},"finishReason":"STOP"}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"narrative\":\"Eddie nods.\"}"}]},"finishReason":"STOP"}]}`,
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	tb, b := testToolbox()
	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-test", BaseURL: ts.URL}, WithTools(tb))
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	conv, err := g.Dial(context.Background(), "You are Fast Eddie.")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	got, err := conv.Send(context.Background(), "[TALKING TO Fast Eddie] e4")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != `{"narrative":"Eddie nods."}` {
		t.Fatalf("Send = %q", got)
	}
	if b.Position().Turn != "black" {
		t.Fatal("tool call did not reach the board")
	}
	if len(srv.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(srv.requests))
	}
	if !strings.Contains(srv.requests[1], "functionResponse") || !strings.Contains(srv.requests[1], "e2e4") {
		t.Fatalf("second request does not carry the tool result:\n%s", srv.requests[1])
	}
	if len(conv.(*geminiConversation).history) != 4 {
		t.Fatalf("history = %d entries, want 4", len(conv.(*geminiConversation).history))
	}
}

func TestGeminiSendErrorKeepsHistory(t *testing.T) {
	srv := &scriptedServer{suffix: ":generateContent", status: http.StatusBadRequest}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-test", BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	conv, _ := g.Dial(context.Background(), "system")
	if _, err := conv.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if n := len(conv.(*geminiConversation).history); n != 0 {
		t.Fatalf("failed turn left %d history entries", n)
	}
}

func TestOpenAISendRunsToolLoop(t *testing.T) {
	srv := &scriptedServer{
		suffix: "/chat/completions",
		responses: []string{
			`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test","choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_legal_moves","arguments":"{}"}}]}}]}`,
			`{"id":"c2","object":"chat.completion","created":2,"model":"gpt-test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"narrative\":\"Twenty moves.\"}"}}]}`,
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	tb, _ := testToolbox()
	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: ts.URL}, WithTools(tb))

	got, err := o.Generate(context.Background(), GenerateInput{SystemPrompt: "system", Message: "what can I play?"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"narrative":"Twenty moves."}` {
		t.Fatalf("Generate = %q", got)
	}
	if len(srv.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(srv.requests))
	}

	var second struct {
		Messages []struct {
			Role       string `json:"role"`
			ToolCallID string `json:"tool_call_id"`
			Content    any    `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(srv.requests[1]), &second); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Fatalf("last message = %+v", last)
	}
	if !strings.Contains(srv.requests[1], `\"count\":20`) {
		t.Fatalf("tool result missing from request:\n%s", srv.requests[1])
	}
}

func TestOpenAIToolsDeclaration(t *testing.T) {
	got := openAITools([]tools.Spec{{Name: "make_move", Description: "Move", Params: []tools.Param{{Name: "move", Required: true}}}})
	if len(got) != 1 || got[0].Function.Name != "make_move" {
		t.Fatalf("unexpected tools: %+v", got)
	}
	if diff := cmp.Diff([]string{"move"}, got[0].Function.Parameters["required"]); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if openAITools(nil) != nil {
		t.Error("no specs should declare no tools")
	}
}

func TestDecodeArguments(t *testing.T) {
	args, err := decodeArguments(`{"move":"Nf3"}`)
	if err != nil || args["move"] != "Nf3" {
		t.Fatalf("decodeArguments = %v, %v", args, err)
	}
	args, err = decodeArguments("")
	if err != nil || len(args) != 0 {
		t.Fatalf("empty arguments = %v, %v", args, err)
	}
	args, err = decodeArguments("{broken")
	if err == nil || args == nil {
		t.Fatalf("broken arguments = %v, %v", args, err)
	}
}

type unknownToolCaller struct{}

func (unknownToolCaller) Specs() []tools.Spec { return nil }

func (unknownToolCaller) Call(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, tools.ErrUnknownTool
}

type brokenToolCaller struct{ unknownToolCaller }

func (brokenToolCaller) Call(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, errors.New("boom")
}

func TestCallTool(t *testing.T) {
	out, err := callTool(context.Background(), unknownToolCaller{}, "resign", nil)
	if err != nil || out["error"] == nil {
		t.Fatalf("unknown tool should become a result: %v, %v", out, err)
	}
	if _, err := callTool(context.Background(), brokenToolCaller{}, "x", nil); err == nil {
		t.Fatal("other tool errors should propagate")
	}
}

func TestGeminiEmptyResponseRollsBack(t *testing.T) {
	srv := &scriptedServer{
		suffix: ":generateContent",
		responses: []string{
			`{"candidates":[]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"hi"}]},"finishReason":"STOP"}]}`,
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-test", BaseURL: ts.URL}, WithTemperature(0.5))
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	conv, _ := g.Dial(context.Background(), "system")

	got, err := conv.Send(context.Background(), "hello")
	if err != nil || got != "" {
		t.Fatalf("Send = %q, %v", got, err)
	}
	if n := len(conv.(*geminiConversation).history); n != 0 {
		t.Fatalf("empty reply left %d history entries", n)
	}

	if _, err := conv.Send(context.Background(), "hello again"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	history := conv.(*geminiConversation).history
	if len(history) != 2 || history[0].Role != genai.RoleUser || history[1].Role != "model" {
		t.Fatalf("history should alternate user and model, got %d entries", len(history))
	}
	if !strings.Contains(srv.requests[0], `"temperature":0.5`) {
		t.Fatalf("temperature not sent:\n%s", srv.requests[0])
	}
}

func TestOpenAIEmptyResponseRollsBack(t *testing.T) {
	srv := &scriptedServer{
		suffix: "/chat/completions",
		responses: []string{
			`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test","choices":[]}`,
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: ts.URL}, WithTemperature(0.5))
	conv, _ := o.Dial(context.Background(), "system")

	got, err := conv.Send(context.Background(), "hello")
	if err != nil || got != "" {
		t.Fatalf("Send = %q, %v", got, err)
	}
	if n := len(conv.(*openAIConversation).history); n != 1 {
		t.Fatalf("history = %d entries, want only the system message", n)
	}
	if !strings.Contains(srv.requests[0], `"temperature":0.5`) {
		t.Fatalf("temperature not sent:\n%s", srv.requests[0])
	}
}
