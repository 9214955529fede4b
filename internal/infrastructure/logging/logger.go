package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
)

const serviceName = "nestwire"

// Logger wraps slog.Logger with the default service and version fields.
//
// All methods except Close are safe for concurrent use.
type Logger struct {
	*slog.Logger

	out io.Closer // set when New opened a log file; nil for children
}

// New builds a Logger for cfg. Output is "stdout" (default), "stderr" or a
// file path opened for append; an unopenable file falls back to stderr.
// A file stays open until Close.
func New(cfg config.LoggingConfig, version string) *Logger {
	w, err := openOutput(cfg.Output)
	l := NewWithWriter(cfg, version, w)
	if err != nil {
		l.Warn("log output unavailable, using stderr", "output", cfg.Output, "error", err)
	}
	if f, ok := w.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		l.out = f
	}
	return l
}

// Close releases the log file New opened. It is a no-op for standard
// streams, writers passed to NewWithWriter and child loggers.
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	out := l.out
	l.out = nil
	return out.Close()
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G302,G304 -- operator-chosen log path
	if err != nil {
		return os.Stderr, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// NewWithWriter builds a Logger writing to w. cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	}))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component tags every entry with the subsystem that wrote it.
//
//	registry.SetLogger(log.Component("registry"))
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Err renders err as an "error" group holding the message and its apperr
// kind code, so failures can be filtered by kind.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("kind", apperr.Code(err)),
	)
}

// Default returns a JSON info-level logger on stdout, used before config loads.
func Default() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", os.Stdout)
}
