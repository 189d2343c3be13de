// Package log is a thin wrapper around zerolog, grounded on the teacher's
// own navidrome/log package: a small set of level functions taking a
// context, a message, and an even list of key/value pairs, so call sites
// never construct zerolog events directly.
package log

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

// SetLevel adjusts the minimum level emitted, mirroring log.SetLevel in the
// teacher's own package.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger = logger.Level(lvl)
}

func event(e *zerolog.Event, ctx context.Context, msg string, kv ...interface{}) {
	if cid, ok := ctx.Value(correlationIDKey{}).(string); ok && cid != "" {
		e = e.Str("correlationId", cid)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		e = e.Interface(key, kv[i+1])
	}
	if len(kv) > 0 {
		if err, ok := kv[len(kv)-1].(error); ok {
			e = e.Err(err)
		}
	}
	e.Msg(msg)
}

// Debug logs at debug level.
func Debug(ctx context.Context, msg string, kv ...interface{}) { event(logger.Debug(), ctx, msg, kv...) }

// Info logs at info level.
func Info(ctx context.Context, msg string, kv ...interface{}) { event(logger.Info(), ctx, msg, kv...) }

// Warn logs at warn level.
func Warn(ctx context.Context, msg string, kv ...interface{}) { event(logger.Warn(), ctx, msg, kv...) }

// Error logs at error level. Conventionally the last kv argument is the
// error being reported.
func Error(ctx context.Context, msg string, kv ...interface{}) { event(logger.Error(), ctx, msg, kv...) }

type correlationIDKey struct{}

// WithCorrelationID stashes a correlation id (produced by clock.NewCorrelationID)
// on the context so every subsequent log call on it is tagged.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}
