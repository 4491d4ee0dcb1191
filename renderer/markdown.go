package renderer

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/message"
)

const markdownTemplate = `+++
title = {{ printf "%q" .Title }}
date = {{ printf "%q" .Date }}
tags = [{{ range $i, $t := .Tags }}{{ if $i }}, {{ end }}{{ printf "%q" $t }}{{ end }}]
+++
{{ if .Cast }}
## Cast

{{ range .Cast }}- **{{ .DisplayName }}** (Elo {{ .Elo }})
{{ end }}
---
{{ end }}
## Transcript

{{ range .Lines }}{{ . }}

{{ end }}`

var transcriptTmpl = template.Must(template.New("transcript").Parse(markdownTemplate))

// NewMarkdownRenderer は outputDir にトランスクリプトを書き出すレンダラーを生成します。
func NewMarkdownRenderer(outputDir string) *MarkdownRenderer {
	return &MarkdownRenderer{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// MarkdownRenderer は、セッションのやり取りを Markdown のトランスクリプトとして書き出すレンダラーです。
type MarkdownRenderer struct {
	outputDir string
	now       func() time.Time

	mu    sync.Mutex
	inbox []*message.Message
	path  string
}

// Render はバスを購読し、バスが閉じるまでメッセージを集めます。
func (r *MarkdownRenderer) Render(bus bus.Bus, wg *sync.WaitGroup) error {
	ch := bus.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range ch {
			r.mu.Lock()
			r.inbox = append(r.inbox, msg)
			r.mu.Unlock()
		}
	}()

	return nil
}

// Finalize は集めたメッセージをファイルに書き出します。
// バスを閉じて Render の終了を待ってから呼びます。
func (r *MarkdownRenderer) Finalize(hustlers []*hustler.Hustler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.inbox {
		if msg.Kind == message.KindError {
			slog.Info("Error message detected, skipping transcript.")
			return nil
		}
	}
	if len(r.inbox) < 2 {
		return nil
	}

	now := r.now()
	data := r.data(hustlers, now)

	var buf bytes.Buffer
	if err := transcriptTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("renderer.MarkdownRenderer.Finalize: %w", err)
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("renderer.MarkdownRenderer.Finalize: %w", err)
	}

	path := filepath.Join(r.outputDir, "chessplaza-"+now.Format("20060102-150405")+".md")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("renderer.MarkdownRenderer.Finalize: %w", err)
	}
	r.path = path

	slog.Info("Transcript written", "path", path)
	return nil
}

// Path は書き出したファイルのパスを返します。まだ書いていなければ空です。
func (r *MarkdownRenderer) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

type transcriptData struct {
	Title string
	Date  string
	Tags  []string
	Cast  []*hustler.Hustler
	Lines []string
}

func (r *MarkdownRenderer) data(hustlers []*hustler.Hustler, now time.Time) transcriptData {
	met := map[string]bool{}
	var lines []string
	for _, msg := range r.inbox {
		if msg.From != nil {
			met[msg.From.ID] = true
		}
		if line := transcriptLine(msg); line != "" {
			lines = append(lines, line)
		}
	}

	// 登場順ではなく名簿の順に並べる
	var cast []*hustler.Hustler
	tags := []string{"chess"}
	for _, h := range hustlers {
		if met[h.ID] {
			cast = append(cast, h)
			tags = append(tags, h.DisplayName)
		}
	}

	title := "An afternoon at Chess Plaza"
	if len(cast) > 0 {
		title = "A game with " + cast[0].DisplayName
	}

	return transcriptData{
		Title: title,
		Date:  now.Format(time.RFC3339),
		Tags:  tags,
		Cast:  cast,
		Lines: lines,
	}
}

func transcriptLine(msg *message.Message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}
	switch msg.Kind {
	case message.KindNarrative:
		return "_" + text + "_"
	case message.KindSystem:
		return "> " + text
	case message.KindBoard:
		return "`" + text + "`"
	case message.KindLog:
		return "<!-- " + strings.ReplaceAll(text, "--", "- -") + " -->"
	default:
		name := msg.Speaker()
		if name == "" {
			name = "Someone"
		}
		return fmt.Sprintf("**%s:** %s", name, text)
	}
}

var _ Renderer = &MarkdownRenderer{}
