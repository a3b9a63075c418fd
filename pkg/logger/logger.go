// Package logger is the structured logger used across anfisa, built on
// log/slog.
//
// Handlers should log through WithCtx so every line carries the request id
// injected by the Logger middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("ice cream saved", "id", ic.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/anfisaforfriends/anfisa/config"
)

var (
	L *slog.Logger

	mu       sync.Mutex
	attached *MongoHandler
)

func init() {
	L = slog.New(newHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

// newHandler returns JSON output for production and text output otherwise.
func newHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// SetOutput rebuilds the base logger around w. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	L = slog.New(newHandler(w, config.IsProduction()))
	slog.SetDefault(L)
}

// AttachMongo fans every record out to a MongoDB collection in addition to
// the console handler. It is a no-op when uri is empty.
func AttachMongo(uri, db, collection string) error {
	if uri == "" {
		return nil
	}

	h, err := NewMongoHandler(uri, db, collection)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	attached = h
	L = slog.New(NewMultiHandler(L.Handler(), h))
	slog.SetDefault(L)
	return nil
}

// Close flushes the MongoDB sink if one is attached.
func Close() {
	mu.Lock()
	h := attached
	attached = nil
	mu.Unlock()

	if h != nil {
		h.Close()
	}
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by InjectLogger, or the
// base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	return L
}

// InjectLogger stores log in ctx for WithCtx to find.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
