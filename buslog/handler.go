package buslog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AnglerfishChess/chessplaza/bus"
	"github.com/AnglerfishChess/chessplaza/message"
)

// BusHandler is a slog.Handler that copies records at or above a level onto a bus.Bus,
// so transcripts keep a note of what went wrong mid-session.
// Every record is still passed to the wrapped handler.
type BusHandler struct {
	bus   bus.Bus
	next  slog.Handler
	level slog.Leveler
	attrs []slog.Attr
}

// NewBusHandler creates a new BusHandler.
func NewBusHandler(b bus.Bus, next slog.Handler, level slog.Leveler) *BusHandler {
	return &BusHandler{
		bus:   b,
		next:  next,
		level: level,
	}
}

// Enabled reports whether either destination wants the level.
func (h *BusHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() || h.next.Enabled(ctx, level)
}

// Handle passes the record to the wrapped handler and then broadcasts it.
// A closed bus is not an error for the caller.
func (h *BusHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.next.Enabled(ctx, r.Level) {
		if err := h.next.Handle(ctx, r); err != nil {
			return err
		}
	}
	if r.Level < h.level.Level() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(r.Level.String())
	sb.WriteString(" ")
	sb.WriteString(r.Message)
	write := func(a slog.Attr) bool {
		sb.WriteString(" ")
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	_ = h.bus.Broadcast(&message.Message{
		Text: sb.String(),
		At:   r.Time,
		Kind: message.KindLog,
	})
	return nil
}

// WithAttrs returns a new BusHandler whose attributes consist of
// the handler's attributes followed by attrs.
func (h *BusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BusHandler{
		bus:   h.bus,
		next:  h.next.WithAttrs(attrs),
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

// WithGroup returns a new BusHandler with the given group name.
// Groups only affect the wrapped handler; bus lines stay flat.
func (h *BusHandler) WithGroup(name string) slog.Handler {
	return &BusHandler{
		bus:   h.bus,
		next:  h.next.WithGroup(name),
		level: h.level,
		attrs: h.attrs,
	}
}

var _ slog.Handler = (*BusHandler)(nil)
