package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/topic"
)

// 統合セッションで、ユーザーの発話の先頭に付ける役割マーカーです。
const NarratorMarker = "[NARRATOR]"

// TalkingToMarker は、ハスラーとの対話中の発話に付けるマーカーです。
func TalkingToMarker(h *hustler.Hustler) string {
	return fmt.Sprintf("[TALKING TO %s]", h.DisplayName)
}

// Composer は、モデルに渡すシステムプロンプトを組み立てます。
// 選択肢（speaker, next_action）は毎回 Registry から生成するので、
// ハスラーを追加すれば契約も自動的に更新されます。
type Composer struct {
	registry  *hustler.Registry
	language  string
	topics    []*topic.Topic
	toolGuide string
}

// Option は Composer の任意設定です。
type Option func(*Composer)

// WithTopics は、公園で噂になっている話題をプロンプトに加えます。
func WithTopics(topics []*topic.Topic) Option {
	return func(c *Composer) {
		c.topics = topics
	}
}

// WithToolGuide は、対局用ツールの説明をプロンプトに加えます。
func WithToolGuide(guide string) Option {
	return func(c *Composer) {
		c.toolGuide = strings.TrimSpace(guide)
	}
}

// New は新しい Composer を生成します。
func New(registry *hustler.Registry, language string, opts ...Option) *Composer {
	c := &Composer{
		registry: registry,
		language: language,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Language は応答言語の表示名を返します。
func (c *Composer) Language() string {
	return LanguageName(c.language)
}

// NextActions は、next_action として許される値を返します。
func (c *Composer) NextActions() []string {
	ids := c.registry.IDs()
	actions := make([]string, 0, len(ids)+1)
	actions = append(actions, event.ActionSelectHustler)
	for _, id := range ids {
		actions = append(actions, event.ApproachPrefix+id)
	}
	return actions
}

func intentValues() []string {
	out := make([]string, 0, len(event.Intents))
	for _, i := range event.Intents {
		out = append(out, string(i))
	}
	return out
}

type profile struct {
	ID     string
	Name   string
	Prompt string
}

type promptData struct {
	Profiles       []profile
	SpeakerIDs     string
	NextActions    string
	Intents        string
	Statuses       string
	Topics         []*topic.Topic
	ToolGuide      string
	Name           string
	Persona        string
	Time           Time
	ParkContract   string
	DialogContract string
	Language       string
}

func (c *Composer) data() promptData {
	var profiles []profile
	for _, h := range c.registry.All() {
		profiles = append(profiles, profile{
			ID:     h.ID,
			Name:   h.DisplayName,
			Prompt: strings.TrimSpace(h.Prompt),
		})
	}
	d := promptData{
		Profiles:    profiles,
		SpeakerIDs:  strings.Join(c.registry.IDs(), "|"),
		NextActions: strings.Join(c.NextActions(), "|"),
		Intents:     strings.Join(intentValues(), "|"),
		Statuses: strings.Join([]string{
			event.StatusOngoing, event.StatusCheckmate, event.StatusStalemate, event.StatusDraw,
		}, "|"),
		Topics:    c.topics,
		ToolGuide: c.toolGuide,
		Language:  LanguageInstruction(c.language),
	}
	d.ParkContract = mustRender(parkContractTmpl, d)
	d.DialogContract = mustRender(dialogContractTmpl, d)
	return d
}

// ParkPrompt は、公園の語り手用のプロンプトを返します（フェーズ分割モード）。
func (c *Composer) ParkPrompt() string {
	return mustRender(parkTmpl, c.data())
}

// HustlerPrompt は、ハスラー本人を演じさせるプロンプトを返します（フェーズ分割モード）。
func (c *Composer) HustlerPrompt(h *hustler.Hustler) string {
	d := c.data()
	d.Name = h.DisplayName
	d.Persona = strings.TrimSpace(h.Prompt)
	return mustRender(hustlerTmpl, d)
}

// UnifiedPrompt は、語り手と全ハスラーを一つの会話で演じさせるプロンプトを返します。
func (c *Composer) UnifiedPrompt(now time.Time) string {
	d := c.data()
	d.Time = ParkTime(now)
	return mustRender(unifiedTmpl, d)
}

func mustRender(t *template.Template, d promptData) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		panic(fmt.Errorf("prompt.%s: %w", t.Name(), err))
	}
	return strings.TrimSpace(buf.String())
}

var parkContractTmpl = template.Must(template.New("parkContract").Parse(`
Output MUST be exactly one JSON object matching the ParkEvent schema:
{
  "narrative": "Scene description: the park, the atmosphere, what each hustler is doing. Always present.",
  "speaker": "{{ .SpeakerIDs }} or empty string if nobody speaks",
  "spoken_display": "Words someone calls out to the player, with personality. Empty string if silent.",
  "spoken_tts": "The same words with clean grammar for text-to-speech. Empty string if silent.",
  "next_action": "{{ .NextActions }}"
}
- "next_action" is "select_hustler" while the player is still looking around.
- Use "approach_<id>" only when the player clearly chose a hustler to approach.
`))

var dialogContractTmpl = template.Must(template.New("dialogContract").Parse(`
Output MUST be exactly one JSON object matching the DialogEvent schema:
{
  "narrative": "Scene description, actions, atmosphere. Always present.",
  "spoken_display": "What you say aloud, with dialect and personality. Empty string if silent.",
  "spoken_tts": "The same words, grammatically clean for text-to-speech. Empty string if silent.",
  "player_intent": "{{ .Intents }}",
  "fen": "Board FEN from the last board tool result, only while a game is on",
  "game_status": "{{ .Statuses }}, only while a game is on",
  "player_move": "The player's last move in SAN, only while a game is on",
  "hustler_move": "Your reply move in SAN, only while a game is on"
}
- "player_intent" is your reading of what the player wants:
  - "continue": normal conversation, keep talking
  - "leaving_opponent": the player wants to leave YOU and go to another table
  - "leaving_park": the player wants to leave the park entirely
  - "stay": the player changed their mind about leaving (after you asked)
- When the player seems to be leaving, react in character and ask whether they really mean it.
`))

var parkTmpl = template.Must(template.New("park").Parse(`
You are the narrator of Chess Plaza, a park with outdoor chess tables.

Your job:
1. When the player arrives, describe the scene atmospherically (weather, sounds, vibe).
2. Describe what each hustler is doing RIGHT NOW. Invent it fresh every time, vivid and varied.
3. When the player says who they want to approach, narrate the approach.

HUSTLER PROFILES (use these details accurately):
{{ range .Profiles }}
--- {{ .Name }} (id: {{ .ID }}) ---
{{ .Prompt }}
{{ end }}
{{- if .Topics }}
Today's newspaper lying on the benches (hustlers may gossip about it):
{{ range .Topics }}- {{ .Title }}
{{ end }}
{{- end }}
{{ .ParkContract }}

No markdown. No extra text. Just the JSON object.
{{ .Language }}
`))

var hustlerTmpl = template.Must(template.New("hustler").Parse(`
You are {{ .Name }}. Play this character:

{{ .Persona }}
{{ .Language }}
{{ if .ToolGuide }}
CHESS: When the player wants to play, run the game with the tools below. Never invent a position.
{{ .ToolGuide }}
{{ end }}
{{ .DialogContract }}

No markdown. No extra text. Just the JSON object.
`))

var unifiedTmpl = template.Must(template.New("unified").Parse(`
You run Chess Plaza, a park with outdoor chess tables, for a single player.
You play two kinds of roles in this one conversation:
- THE NARRATOR, who describes the park and the hustlers.
- ONE HUSTLER at a time, once the player sits down at their table.

Every player message starts with a role marker:
- "[NARRATOR]": the player is walking around the park. Answer as the narrator with a ParkEvent.
- "[TALKING TO <Name>]": the player sits at <Name>'s table. Answer as <Name> in first person with a DialogEvent.
Messages in parentheses after a marker are stage directions, not the player's words.
Characters remember everything that happened earlier in this conversation.

PARK TIME: {{ .Time.TimeOfDay }}, {{ .Time.DayOfWeek }}, {{ .Time.Date }}. Let light, crowd and weather fit it.

HUSTLER PROFILES (use these details accurately):
{{ range .Profiles }}
--- {{ .Name }} (id: {{ .ID }}) ---
{{ .Prompt }}
{{ end }}
{{- if .Topics }}
Today's newspaper lying on the benches (hustlers may gossip about it):
{{ range .Topics }}- {{ .Title }}
{{ end }}
{{- end }}
NARRATOR TURNS.
{{ .ParkContract }}

HUSTLER TURNS.
{{ .DialogContract }}
{{ if .ToolGuide }}
CHESS: When the player wants to play, run the game with the tools below. Never invent a position.
{{ .ToolGuide }}
{{ end }}
No markdown. No extra text. Just the JSON object.
{{ .Language }}
`))
