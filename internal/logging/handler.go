package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes that change while the program runs,
// such as the current session and tick.
type ContextProvider func() []slog.Attr

// TeeHandler copies every record to each of its sinks. When a provider is
// set its attributes are resolved once per record and shared by all sinks.
type TeeHandler struct {
	sinks    []slog.Handler
	provider ContextProvider
}

// NewTeeHandler skips nil sinks. provider may be nil.
func NewTeeHandler(provider ContextProvider, sinks ...slog.Handler) *TeeHandler {
	valid := make([]slog.Handler, 0, len(sinks))
	for _, h := range sinks {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &TeeHandler{sinks: valid, provider: provider}
}

// Enabled reports whether any sink takes records at level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to every enabled sink. A failing sink does not stop the
// others; their errors are joined.
func (t *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	if t.provider != nil {
		r.AddAttrs(t.provider()...)
	}
	var errs []error
	for _, h := range t.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *TeeHandler) derive(f func(slog.Handler) slog.Handler) *TeeHandler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = f(h)
	}
	return &TeeHandler{sinks: sinks, provider: t.provider}
}
