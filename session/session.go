package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/event"
	"github.com/AnglerfishChess/chessplaza/hustler"
	"github.com/AnglerfishChess/chessplaza/llm"
	"github.com/AnglerfishChess/chessplaza/message"
	"github.com/AnglerfishChess/chessplaza/prompt"
	"github.com/AnglerfishChess/chessplaza/renderer"
	"github.com/AnglerfishChess/chessplaza/turn"
)

// モデルに送る、プレイヤーの発言ではない演出上の指示です。
const (
	OpeningDirection  = "(The player has just arrived at the park. Describe what they see.)"
	GreetingDirection = "(The player walks up and sits down at your table. Greet them.)"
)

// プレイヤーに見せる固定の文言です。
const (
	FarewellLine = "You walk out of Chess Plaza. See you next time!"
	ReturnLine   = "You get up from %s's table and wander back into the park."
)

// ErrNotStarted は Start の前に Handle が呼ばれたことを表します。
var ErrNotStarted = errors.New("session not started")

// Option は Session の任意設定です。
type Option func(*Session)

// WithTopology は会話の張り方を指定します。既定は Unified です。
func WithTopology(t Topology) Option {
	return func(s *Session) {
		s.topology = t
	}
}

// WithBus は、表示した内容を流すバスを指定します。
func WithBus(b bus.Bus) Option {
	return func(s *Session) {
		s.bus = b
	}
}

// WithTurnManager は、モデルへの問い合わせを直列化する Manager を指定します。
func WithTurnManager(m turn.Manager) Option {
	return func(s *Session) {
		s.turns = m
	}
}

// WithClock は公園の時刻に使う時計を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session は、公園とハスラーとの対話をまたぐ一つのセッションです。
// 一度に一人のプレイヤーだけを扱い、並行には呼び出せません。
type Session struct {
	id        string
	dialer    llm.Dialer
	composer  *prompt.Composer
	registry  *hustler.Registry
	presenter renderer.Presenter
	bus       bus.Bus
	turns     turn.Manager
	topology  Topology
	now       func() time.Time
	logger    *slog.Logger

	state State
	conv  llm.Conversation
}

func New(dialer llm.Dialer, composer *prompt.Composer, registry *hustler.Registry, presenter renderer.Presenter, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		dialer:    dialer,
		composer:  composer,
		registry:  registry,
		presenter: presenter,
		turns:     turn.NewMutexManager(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = slog.Default().With("session", s.id)
	return s
}

// ID はログに載せるセッション ID です。
func (s *Session) ID() string {
	return s.id
}

// State は現在の状態を返します。
func (s *Session) State() State {
	return s.state
}

// Start は会話を開き、プレイヤーが公園に着いた場面をモデルに描写させます。
func (s *Session) Start(ctx context.Context) error {
	s.state = State{Phase: PhasePark}

	systemPrompt := s.composer.ParkPrompt()
	if s.topology == Unified {
		systemPrompt = s.composer.UnifiedPrompt(s.now())
	}
	if err := s.dial(ctx, systemPrompt); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session started", "topology", s.topology.String())

	ev, err := s.ask(ctx, s.tag(OpeningDirection))
	if err != nil {
		return err
	}
	return s.present(ctx, ev, s.parkSpeaker(ev))
}

// Handle はプレイヤーの一回分の入力で状態を一つ進めます。
func (s *Session) Handle(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" || s.state.Phase == PhaseEnded {
		return nil
	}
	if s.conv == nil {
		return fmt.Errorf("session.Session.Handle: %w", ErrNotStarted)
	}
	s.publish(&message.Message{Kind: message.KindPlayer, Text: text})

	switch s.state.Phase {
	case PhasePark:
		return s.handlePark(ctx, text)
	case PhaseDialog:
		return s.handleDialog(ctx, text)
	case PhaseConfirmLeave:
		return s.handleConfirm(ctx, text)
	}
	return nil
}

// Run は Start してから、セッションが終わるまで入力を読んで Handle します。
// 入力が尽きた場合と ctx が取り消された場合（Ctrl+C）も、別れの文言を出して正常に終わります。
func (s *Session) Run(ctx context.Context, in Input) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	for s.state.Phase != PhaseEnded {
		line, err := in.ReadLine(ctx)
		if errors.Is(err, io.EOF) || interrupted(ctx, err) {
			s.end(ctx)
			return nil
		}
		if err != nil {
			return fmt.Errorf("session.Session.Run: %w", err)
		}
		if err := s.Handle(ctx, line); err != nil {
			if interrupted(ctx, err) {
				s.end(ctx)
				return nil
			}
			return err
		}
	}
	return nil
}

func interrupted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled)
}

func (s *Session) handlePark(ctx context.Context, text string) error {
	if IsLeavePhrase(text) {
		s.end(ctx)
		return nil
	}

	ev, err := s.ask(ctx, s.tag(text))
	if err != nil {
		return err
	}
	if err := s.present(ctx, ev, s.parkSpeaker(ev)); err != nil {
		return err
	}

	id, ok := ev.ApproachTarget()
	if !ok {
		return nil
	}
	h, err := s.registry.Lookup(id)
	if err != nil {
		s.logger.DebugContext(ctx, "ignoring approach to unknown hustler", "id", id)
		return nil
	}
	return s.enterDialog(ctx, h)
}

func (s *Session) handleDialog(ctx context.Context, text string) error {
	h := s.state.Hustler
	ev, err := s.ask(ctx, s.tag(text))
	if err != nil {
		return err
	}
	if err := s.present(ctx, ev, h); err != nil {
		return err
	}

	if ev.PlayerIntent.Leaving() {
		s.transition(ctx, State{Phase: PhaseConfirmLeave, Hustler: h, Trigger: ev.PlayerIntent})
	}
	return nil
}

// handleConfirm は、聞き返した後の新しい意図だけで行き先を決めます。
func (s *Session) handleConfirm(ctx context.Context, text string) error {
	h := s.state.Hustler
	ev, err := s.ask(ctx, s.tag(text))
	if err != nil {
		return err
	}
	if err := s.present(ctx, ev, h); err != nil {
		return err
	}

	switch ev.PlayerIntent {
	case event.IntentLeavingPark:
		s.end(ctx)
	case event.IntentLeavingOpponent:
		return s.returnToPark(ctx, h)
	default:
		s.transition(ctx, State{Phase: PhaseDialog, Hustler: h})
	}
	return nil
}

func (s *Session) enterDialog(ctx context.Context, h *hustler.Hustler) error {
	s.transition(ctx, State{Phase: PhaseDialog, Hustler: h})
	if s.topology == Split {
		if err := s.dial(ctx, s.composer.HustlerPrompt(h)); err != nil {
			return err
		}
	}

	ev, err := s.ask(ctx, s.tag(GreetingDirection))
	if err != nil {
		return err
	}
	return s.present(ctx, ev, h)
}

func (s *Session) returnToPark(ctx context.Context, from *hustler.Hustler) error {
	s.transition(ctx, State{Phase: PhasePark})
	s.announce(fmt.Sprintf(ReturnLine, from.DisplayName))
	if s.topology == Split {
		return s.dial(ctx, s.composer.ParkPrompt())
	}
	return nil
}

func (s *Session) end(ctx context.Context) {
	s.transition(ctx, State{Phase: PhaseEnded})
	s.announce(FarewellLine)
}

func (s *Session) transition(ctx context.Context, next State) {
	s.logger.DebugContext(ctx, "transition", "from", s.state.String(), "to", next.String())
	s.state = next
}

func (s *Session) dial(ctx context.Context, systemPrompt string) error {
	conv, err := s.dialer.Dial(ctx, systemPrompt)
	if err != nil {
		return fmt.Errorf("session.Session.dial: %w", err)
	}
	s.conv = conv
	return nil
}

// tag は統合方式のとき、発話の先頭に今の役割のマーカーを付けます。
func (s *Session) tag(text string) string {
	if s.topology != Unified {
		return text
	}
	if s.state.Hustler != nil {
		return prompt.TalkingToMarker(s.state.Hustler) + " " + text
	}
	return prompt.NarratorMarker + " " + text
}

// ask はモデルに一ターン問い合わせます。失敗はそのまま呼び出し元に返します。
func (s *Session) ask(ctx context.Context, text string) (event.Event, error) {
	var raw string
	err := turn.Do(ctx, s.turns, func(ctx context.Context) error {
		var err error
		raw, err = s.conv.Send(ctx, text)
		return err
	})
	if err != nil {
		s.publish(&message.Message{Kind: message.KindError, Text: err.Error()})
		return event.Event{}, fmt.Errorf("session.Session.ask: %w", err)
	}
	s.logger.DebugContext(ctx, "model turn", "phase", s.state.Phase.String(), "bytes", len(raw))
	return event.Parse(raw), nil
}

// parkSpeaker は公園のイベントの話し手を探します。知らない ID なら語り手扱いです。
func (s *Session) parkSpeaker(ev event.Event) *hustler.Hustler {
	if ev.Speaker == "" {
		return nil
	}
	h, err := s.registry.Lookup(ev.Speaker)
	if err != nil {
		return nil
	}
	return h
}

func (s *Session) present(ctx context.Context, ev event.Event, speaker *hustler.Hustler) error {
	if err := s.presenter.Present(ctx, ev, speaker); err != nil {
		return fmt.Errorf("session.Session.present: %w", err)
	}

	if ev.Narrative != "" {
		s.publish(&message.Message{Kind: message.KindNarrative, Text: ev.Narrative})
	}
	if ev.SpokenDisplay != "" {
		s.publish(&message.Message{Kind: message.KindSpeech, From: speaker, Text: ev.SpokenDisplay})
	}
	if ev.HasGame() {
		s.publish(&message.Message{
			Kind: message.KindBoard,
			Text: strings.Join(strings.Fields(ev.PlayerMove+" "+ev.HustlerMove+" "+ev.GameStatus), " "),
			Meta: map[string]string{"fen": ev.FEN},
		})
	}
	return nil
}

func (s *Session) announce(text string) {
	s.presenter.Announce(text)
	s.publish(&message.Message{Kind: message.KindSystem, Text: text})
}

func (s *Session) publish(m *message.Message) {
	if s.bus == nil {
		return
	}
	if m.At.IsZero() {
		m.At = s.now()
	}
	if err := s.bus.Broadcast(m); err != nil {
		s.logger.Debug("transcript message dropped", "error", err)
	}
}
