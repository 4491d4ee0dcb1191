package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"

	"github.com/AnglerfishChess/chessplaza/board"
	buspkg "github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/buslog"
	"github.com/AnglerfishChess/chessplaza/config"
	"github.com/AnglerfishChess/chessplaza/engine"
	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/fetcher"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/llm"
	"github.com/AnglerfishChess/chessplaza/prompt"
	"github.com/AnglerfishChess/chessplaza/renderer"
	"github.com/AnglerfishChess/chessplaza/session"
	"github.com/AnglerfishChess/chessplaza/tools"
	"github.com/AnglerfishChess/chessplaza/topic"
	"github.com/AnglerfishChess/chessplaza/turn"
	"github.com/AnglerfishChess/chessplaza/voice"
)

const usage = `Usage:
  chessplaza [flags] <engine-path>          walk into the park and play
  chessplaza [flags] talk [-hustler id] MSG  get one reply, no session
  chessplaza hustlers                        list the hustlers
  chessplaza mcp <engine-path>               serve the board and engine tools over MCP stdio

Flags:
`

func main() {
	// --- 設定の読み込み（.env → 環境変数 → フラグ） ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	registry, err := hustler.Default()
	if err != nil {
		log.Fatalf("failed to load hustlers: %v", err)
	}

	// Ctrl+C で ctx を終わらせる
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := flag.Args()
	if len(args) == 0 {
		if cfg.EnginePath == "" {
			printBanner(registry)
			return
		}
		args = []string{cfg.EnginePath}
	}

	switch args[0] {
	case "hustlers":
		listHustlers(registry)
	case "talk":
		talk(ctx, cfg, registry, args[1:])
	case "mcp":
		serveMCP(ctx, cfg, registry, args[1:])
	case "play":
		play(ctx, cfg, registry, enginePath(cfg, args[1:]))
	default:
		play(ctx, cfg, registry, args[0])
	}
}

func enginePath(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.EnginePath
}

func printBanner(registry *hustler.Registry) {
	fmt.Println("Welcome to Chess Plaza.")
	fmt.Println("Outdoor tables, pigeons, and people who will take your money at blitz.")
	if h, err := registry.Random(rand.New(rand.NewSource(time.Now().UnixNano()))); err == nil {
		fmt.Printf("Today %s (Elo %d) is looking for a victim.\n", h.DisplayName, h.Elo)
	}
	fmt.Println()
	flag.Usage()
}

func listHustlers(registry *hustler.Registry) {
	for _, h := range registry.All() {
		fmt.Printf("%-8s %-14s Elo %-5d skill %-3d voice %s\n", h.ID, h.DisplayName, h.Elo, hustler.SkillLevel(h.Elo), h.Voice)
	}
}

func talk(ctx context.Context, cfg *config.Config, registry *hustler.Registry, args []string) {
	fs := flag.NewFlagSet("talk", flag.ExitOnError)
	hustlerID := fs.String("hustler", "", "hustler to talk to (default: the park narrator)")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		log.Fatal(`usage: chessplaza talk [-hustler id] "message"`)
	}
	if err := cfg.ValidateModel(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	model, _, err := newModel(ctx, cfg, llm.WithTemperature(float32(cfg.Temperature)))
	if err != nil {
		log.Fatalf("failed to create model client: %v", err)
	}

	composer := prompt.New(registry, cfg.Language)
	systemPrompt := composer.ParkPrompt()
	var speaker *hustler.Hustler
	if *hustlerID != "" {
		h, err := registry.Lookup(*hustlerID)
		if err != nil {
			log.Fatalf("%v", err)
		}
		speaker = h
		systemPrompt = composer.HustlerPrompt(h)
	}

	raw, err := model.Generate(ctx, llm.GenerateInput{SystemPrompt: systemPrompt, Message: fs.Arg(0)})
	if err != nil {
		log.Fatalf("model failed: %v", err)
	}
	ev := event.Parse(raw)
	if speaker == nil && ev.Speaker != "" {
		speaker, _ = registry.Lookup(ev.Speaker)
	}
	console := renderer.NewConsoleRenderer(os.Stdout)
	if err := console.Present(ctx, ev, speaker); err != nil {
		log.Fatalf("failed to present reply: %v", err)
	}
}

func serveMCP(ctx context.Context, cfg *config.Config, registry *hustler.Registry, args []string) {
	eng, closeEngine := startEngine(cfg, enginePath(cfg, args))
	defer closeEngine()

	toolbox := tools.New(board.New(), eng, registry)
	slog.Info("serving MCP over stdio", "server", tools.ServerName, "tools", len(toolbox.Specs()))
	if err := tools.ServeMCP(ctx, toolbox, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}

func play(ctx context.Context, cfg *config.Config, registry *hustler.Registry, path string) {
	if err := cfg.ValidateModel(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	topology, _ := session.ParseTopology(cfg.Topology)

	eng, closeEngine := startEngine(cfg, path)
	defer closeEngine()

	toolbox := tools.New(board.New(), eng, registry)
	composer := prompt.New(registry, cfg.Language,
		prompt.WithTopics(fetchTopics(ctx, cfg)),
		prompt.WithToolGuide(toolbox.Describe()),
	)

	model, speechClient, err := newModel(ctx, cfg,
		llm.WithTools(toolbox),
		llm.WithTemperature(float32(cfg.Temperature)),
	)
	if err != nil {
		log.Fatalf("failed to create model client: %v", err)
	}

	// --- レンダラーを初期化 ---
	console := renderer.NewConsoleRenderer(os.Stdout, renderer.WithTypingDelay(cfg.TypingDelay))
	presenter := newPresenter(ctx, cfg, console, speechClient)

	bus := buspkg.NewMemoryBus(0)
	var wg sync.WaitGroup
	var renderers []renderer.Renderer
	if cfg.Transcripts != "" {
		md := renderer.NewMarkdownRenderer(cfg.Transcripts)
		if err := md.Render(bus, &wg); err != nil {
			log.Fatalf("failed to initialize markdown renderer: %v", err)
		}
		renderers = append(renderers, md)

		// 警告以上はトランスクリプトにも残す
		logger := slog.Default()
		slog.SetDefault(slog.New(buslog.NewBusHandler(bus, logger.Handler(), slog.LevelWarn)))
		defer slog.SetDefault(logger)
	}

	sess := session.New(model, composer, registry, presenter,
		session.WithTopology(topology),
		session.WithBus(bus),
		session.WithTurnManager(turn.NewMutexManager()),
	)
	slog.Info("starting session", "session", sess.ID(), "backend", cfg.Backend, "model", cfg.ModelName(), "language", composer.Language())

	runErr := sess.Run(ctx, session.NewLineReader(os.Stdin, os.Stdout, "You> "))

	bus.Close()
	wg.Wait()
	for _, r := range renderers {
		if err := r.Finalize(registry.All()); err != nil {
			slog.Error("failed to finalize renderer", "error", err)
		}
	}
	if runErr != nil {
		closeEngine()
		log.Fatalf("session failed: %v", runErr)
	}
}

// startEngine はエンジンを起動します。パスがなければエンジンなしで続けます。
func startEngine(cfg *config.Config, path string) (tools.Engine, func()) {
	if path == "" {
		slog.Warn("no engine path given, hustlers will play their own moves")
		return nil, func() {}
	}
	e, err := engine.Start(path, engine.WithMoveTime(cfg.MoveTime))
	if err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}
	var once sync.Once
	return e, func() {
		once.Do(func() {
			if err := e.Close(); err != nil {
				slog.Warn("failed to stop engine", "error", err)
			}
		})
	}
}

func fetchTopics(ctx context.Context, cfg *config.Config) []*topic.Topic {
	if cfg.NewsFeed == "" {
		return nil
	}
	var f topic.Fetcher = fetcher.NewRSSFetcher(cfg.NewsFeed, cfg.NewsLimit)
	topics, err := f.Fetch(ctx)
	if err != nil {
		slog.Warn("failed to fetch park gossip", "feed", cfg.NewsFeed, "error", err)
		return nil
	}
	return topics
}

// chatModel は会話も一回きりの応答もできるモデルクライアントです。
type chatModel interface {
	llm.LLM
	llm.Dialer
}

// newModel はバックエンドに応じたクライアントを作ります。
// 二つ目の戻り値は音声合成に使う genai クライアントで、Gemini の認証情報がなければ nil です。
func newModel(ctx context.Context, cfg *config.Config, opts ...llm.Option) (chatModel, *genai.Client, error) {
	gcfg := llm.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Model:    cfg.ModelName(),
	}

	if cfg.Backend == config.BackendGemini {
		g, err := llm.NewGemini(ctx, gcfg, opts...)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Client(), nil
	}

	o := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.ModelName(),
		BaseURL: cfg.OpenAIBaseURL,
	}, opts...)
	if !cfg.HasGemini() {
		return o, nil, nil
	}
	g, err := llm.NewGemini(ctx, gcfg)
	if err != nil {
		slog.Warn("failed to create Gemini client for speech", "error", err)
		return o, nil, nil
	}
	return o, g.Client(), nil
}

// newPresenter は起動時に一度だけ音声の可否を調べ、使えなければ文字だけで続けます。
func newPresenter(ctx context.Context, cfg *config.Config, console *renderer.ConsoleRenderer, client *genai.Client) renderer.Presenter {
	if !cfg.Voice {
		return console
	}
	if client == nil {
		console.Announce("Voice needs Gemini credentials (GEMINI_API_KEY or PROJECT_ID/LOCATION). Continuing without voice.")
		return console
	}
	player, err := voice.Probe(exec.LookPath)
	if err != nil {
		slog.WarnContext(ctx, "voice disabled", "error", err)
		console.Announce(fmt.Sprintf("Voice disabled: %v", err))
		return console
	}
	return renderer.NewVoiceRenderer(console, voice.NewGeminiSpeaker(client, player))
}
