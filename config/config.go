package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/AnglerfishChess/chessplaza/session"
)

// モデルの接続先です。
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

var defaultModels = map[string]string{
	BackendGemini: "gemini-2.5-flash",
	BackendOpenAI: "gpt-4o-mini",
}

// Config はアプリケーション全体の設定です。
// .env、環境変数、コマンドラインフラグの順に上書きされます。
type Config struct {
	Backend string `env:"CHESSPLAZA_BACKEND" envDefault:"gemini"`
	Model   string `env:"CHESSPLAZA_MODEL"`
	// Temperature はモデルのサンプリング温度です。
	Temperature float64 `env:"CHESSPLAZA_TEMPERATURE" envDefault:"0.8"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	ProjectID    string `env:"PROJECT_ID"`
	Location     string `env:"LOCATION" envDefault:"us-central1"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	Language    string        `env:"CHESSPLAZA_LANGUAGE" envDefault:"English"`
	Voice       bool          `env:"CHESSPLAZA_VOICE"`
	EnginePath  string        `env:"CHESSPLAZA_ENGINE"`
	MoveTime    time.Duration `env:"CHESSPLAZA_MOVE_TIME" envDefault:"1s"`
	Topology    string        `env:"CHESSPLAZA_TOPOLOGY" envDefault:"unified"`
	NewsFeed    string        `env:"CHESSPLAZA_NEWS_FEED"`
	NewsLimit   int           `env:"CHESSPLAZA_NEWS_LIMIT" envDefault:"5"`
	Transcripts string        `env:"CHESSPLAZA_TRANSCRIPT_DIR"`
	TypingDelay time.Duration `env:"CHESSPLAZA_TYPING_DELAY" envDefault:"0s"`
	LogLevel    string        `env:"CHESSPLAZA_LOG_LEVEL" envDefault:"warn"`
}

// Load は .env ファイル（あれば）と環境変数から設定を読み込みます。
// paths を省略するとカレントディレクトリの .env を読みます。
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// RegisterFlags は、現在の値を既定値としてフラグを登録します。
func (c *Config) RegisterFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.Backend, "backend", c.Backend, "model backend: gemini or openai")
	flags.StringVar(&c.Model, "model", c.Model, "model name (default depends on the backend)")
	flags.Float64Var(&c.Temperature, "temperature", c.Temperature, "model sampling temperature, 0 to 2")
	flags.StringVar(&c.Language, "language", c.Language, "language the characters speak, e.g. Russian or de")
	flags.BoolVar(&c.Voice, "voice", c.Voice, "speak the lines aloud (needs Gemini credentials and an audio player)")
	flags.DurationVar(&c.MoveTime, "move-time", c.MoveTime, "engine thinking time per move")
	flags.StringVar(&c.Topology, "topology", c.Topology, "conversation topology: unified or split")
	flags.StringVar(&c.NewsFeed, "news", c.NewsFeed, "RSS feed whose headlines the hustlers gossip about")
	flags.StringVar(&c.Transcripts, "transcripts", c.Transcripts, "directory for Markdown transcripts (empty disables them)")
	flags.DurationVar(&c.TypingDelay, "typing-delay", c.TypingDelay, "delay between characters when printing lines")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
}

// ModelName は使うモデル名を返します。未指定ならバックエンドの既定値です。
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Backend]
}

// Level は LogLevel を slog.Level にします。
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("config.Config.Level: %w", err)
	}
	return level, nil
}

// Validate はモデルを使わないコマンドでも必要な値を確認します。
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if _, ok := defaultModels[c.Backend]; !ok {
		return fmt.Errorf("config.Config.Validate: unknown backend %q (want gemini or openai)", c.Backend)
	}
	if _, err := session.ParseTopology(c.Topology); err != nil {
		return fmt.Errorf("config.Config.Validate: %w", err)
	}
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("config.Config.Validate: language is empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config.Config.Validate: temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.MoveTime <= 0 {
		return fmt.Errorf("config.Config.Validate: move time must be positive, got %s", c.MoveTime)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config.Config.Validate: %w", err)
	}
	return nil
}

// ValidateModel はモデルの認証情報を確認します。
func (c *Config) ValidateModel() error {
	switch c.Backend {
	case BackendGemini:
		if c.GeminiAPIKey == "" && (c.ProjectID == "" || c.Location == "") {
			return fmt.Errorf("config.Config.ValidateModel: set GEMINI_API_KEY, or PROJECT_ID and LOCATION for Vertex AI")
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config.Config.ValidateModel: set OPENAI_API_KEY")
		}
	}
	return nil
}

// HasGemini は Gemini の認証情報があるかを返します。音声合成は常に Gemini を使います。
func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != "" || (c.ProjectID != "" && c.Location != "")
}
