// Package logger wraps log/slog behind a small interface carried in contexts.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)

	With(attrs ...any) Logger
	WithGroup(name string) Logger
}

var _ Logger = (*slogLogger)(nil)

type config struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

type Option func(*config)

// WithDebug enables debug level and source locations.
func WithDebug() Option {
	return func(c *config) { c.debug = true }
}

// WithFormat selects "text" or "json" output.
func WithFormat(format string) Option {
	return func(c *config) { c.format = format }
}

// WithWriter adds a second sink, such as a log file.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// WithQuiet drops the stderr sink.
func WithQuiet() Option {
	return func(c *config) { c.quiet = true }
}

var defaultLogger = NewLogger(WithFormat("text"))

// NewLogger builds a logger fanning out to stderr and the optional writer.
func NewLogger(opts ...Option) Logger {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: cfg.debug}

	var handlers []slog.Handler
	if !cfg.quiet {
		handlers = append(handlers, newHandler(os.Stderr, cfg.format, handlerOpts))
	}
	if cfg.writer != nil {
		handlers = append(handlers, &lockedHandler{
			handler: newHandler(cfg.writer, cfg.format, handlerOpts),
			mu:      &sync.Mutex{},
		})
	}

	return &slogLogger{
		logger: slog.New(slogmulti.Fanout(handlers...)),
		debug:  cfg.debug,
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var _ slog.Handler = (*lockedHandler)(nil)

// lockedHandler serializes writes to a shared writer so that lines from
// derived loggers never interleave.
type lockedHandler struct {
	handler slog.Handler
	mu      *sync.Mutex
}

func (h *lockedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *lockedHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler.Handle(ctx, record)
}

func (h *lockedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lockedHandler{handler: h.handler.WithAttrs(attrs), mu: h.mu}
}

func (h *lockedHandler) WithGroup(name string) slog.Handler {
	return &lockedHandler{handler: h.handler.WithGroup(name), mu: h.mu}
}

type slogLogger struct {
	logger *slog.Logger
	debug  bool
}

func (l *slogLogger) Debug(msg string, tags ...any) { l.log(slog.LevelDebug, msg, tags...) }
func (l *slogLogger) Info(msg string, tags ...any)  { l.log(slog.LevelInfo, msg, tags...) }
func (l *slogLogger) Warn(msg string, tags ...any)  { l.log(slog.LevelWarn, msg, tags...) }
func (l *slogLogger) Error(msg string, tags ...any) { l.log(slog.LevelError, msg, tags...) }

// log records the caller of the Logger method as the source.
func (l *slogLogger) log(level slog.Level, msg string, tags ...any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	var pc uintptr
	if l.debug {
		var pcs [1]uintptr
		// Skip runtime.Callers, log and the Logger method.
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}
	record := slog.NewRecord(time.Now(), level, msg, pc)
	record.Add(tags...)
	_ = l.logger.Handler().Handle(ctx, record)
}

func (l *slogLogger) With(attrs ...any) Logger {
	return &slogLogger{logger: l.logger.With(attrs...), debug: l.debug}
}

func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{logger: l.logger.WithGroup(name), debug: l.debug}
}
