// Package log carries the component-tagged slog logger used across registro.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Handler formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger whose records carry the owning component.
type Logger struct {
	*slog.Logger
	// base is the logger without the component attribute, so that
	// WithComponent replaces the tag instead of repeating it.
	base      *slog.Logger
	component string
}

// Config selects level, format and destination. A non-nil Handler is used
// as is and the other output settings are ignored.
type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	Component string
	Handler   slog.Handler
}

// DefaultConfig logs info and above as text on stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Component: ComponentApp,
	}
}

func New(config Config) *Logger {
	return newLogger(slog.New(config.handler()), config.Component)
}

func (c Config) handler() slog.Handler {
	if c.Handler != nil {
		return c.Handler
	}
	out := c.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == FormatJSON {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

func newLogger(base *slog.Logger, component string) *Logger {
	l := &Logger{Logger: base, base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger with extra attributes and the same component.
func (l *Logger) With(args ...any) *Logger {
	return newLogger(l.base.With(args...), l.component)
}

// WithComponent retags the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return newLogger(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

var defaultLogger atomic.Pointer[Logger]

// SetDefault installs logger as the slog default, so package-level slog
// calls share its handler and component.
func SetDefault(logger *Logger) {
	defaultLogger.Store(logger)
	slog.SetDefault(logger.Logger)
}

// Default returns the logger installed by SetDefault, or an untagged one
// over slog.Default.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return newLogger(slog.Default(), "")
}
