package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textSink(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

// failingSink accepts every record and fails to write it.
type failingSink struct {
	slog.Handler
}

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandler_CopiesToEverySink(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewTeeHandler(nil, textSink(&a, slog.LevelInfo), textSink(&b, slog.LevelInfo)))
	logger.Info("checkered flag")

	assert.Contains(t, a.String(), "checkered flag")
	assert.Contains(t, b.String(), "checkered flag")
}

func TestTeeHandler_SkipsNilSinks(t *testing.T) {
	var buf bytes.Buffer
	tee := NewTeeHandler(nil, nil, textSink(&buf, slog.LevelInfo), nil)
	require.Len(t, tee.sinks, 1)

	slog.New(tee).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestTeeHandler_Enabled(t *testing.T) {
	info := textSink(&bytes.Buffer{}, slog.LevelInfo)
	debug := textSink(&bytes.Buffer{}, slog.LevelDebug)
	ctx := context.Background()

	assert.False(t, NewTeeHandler(nil, info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewTeeHandler(nil, info).Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewTeeHandler(nil, info, debug).Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewTeeHandler(nil).Enabled(ctx, slog.LevelError))
}

func TestTeeHandler_PerSinkLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer
	logger := slog.New(NewTeeHandler(nil, textSink(&quiet, slog.LevelWarn), textSink(&verbose, slog.LevelDebug)))
	logger.Debug("sample written")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "sample written")
}

func TestTeeHandler_FailingSinkDoesNotBlockOthers(t *testing.T) {
	var buf bytes.Buffer
	tee := NewTeeHandler(nil, failingSink{}, textSink(&buf, slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "pit stop", 0)
	err := tee.Handle(context.Background(), r)

	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, buf.String(), "pit stop")
}

func TestTeeHandler_ProviderCalledOncePerRecord(t *testing.T) {
	var a, b bytes.Buffer
	calls := 0
	provider := func() []slog.Attr {
		calls++
		return []slog.Attr{slog.Int("tick", calls)}
	}
	logger := slog.New(NewTeeHandler(provider, textSink(&a, slog.LevelInfo), textSink(&b, slog.LevelInfo)))
	logger.Info("lap")

	assert.Equal(t, 1, calls)
	assert.Contains(t, a.String(), "tick=1")
	assert.Contains(t, b.String(), "tick=1")
}

func TestTeeHandler_WithAttrsAndGroupKeepProvider(t *testing.T) {
	var buf bytes.Buffer
	tee := NewTeeHandler(func() []slog.Attr {
		return []slog.Attr{slog.String("session", "race-1")}
	}, textSink(&buf, slog.LevelInfo))

	slog.New(tee).With("car", 3).WithGroup("g").Info("msg", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "car=3")
	assert.Contains(t, out, "g.k=v")
	assert.Contains(t, out, "g.session=race-1")
}

func TestTeeHandler_EmptyGroupIsSameHandler(t *testing.T) {
	tee := NewTeeHandler(nil, textSink(&bytes.Buffer{}, slog.LevelInfo))
	assert.Same(t, tee, tee.WithGroup(""))
}
