package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// badKey names a value that has no string key in front of it, as slog does.
const badKey = "!BADKEY"

// KVLogger puts slog-style key/value calls onto a zerolog.Logger. It
// satisfies dispatcher.Logger.
type KVLogger struct {
	logger zerolog.Logger
}

// NewKVLogger tags every line with component when it is not empty.
func NewKVLogger(logger zerolog.Logger, component string) *KVLogger {
	if component != "" {
		logger = logger.With().Str("component", component).Logger()
	}
	return &KVLogger{logger: logger}
}

func (l *KVLogger) Debug(msg string, keysAndValues ...any) {
	appendKV(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *KVLogger) Info(msg string, keysAndValues ...any) {
	appendKV(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *KVLogger) Warn(msg string, keysAndValues ...any) {
	appendKV(l.logger.Warn(), keysAndValues).Msg(msg)
}

func (l *KVLogger) Error(msg string, keysAndValues ...any) {
	appendKV(l.logger.Error(), keysAndValues).Msg(msg)
}

// appendKV keeps the caller's field order. Errors go through AnErr so
// zerolog's error marshaller applies.
func appendKV(e *zerolog.Event, kv []any) *zerolog.Event {
	if e == nil {
		return nil
	}
	for i := 0; i < len(kv); {
		key, ok := kv[i].(string)
		if !ok || i+1 == len(kv) {
			e = e.Interface(badKey, kv[i])
			i++
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
		i += 2
	}
	return e
}
