package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stderr"` // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format"`
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	return NewWithWriter(output, level), nil
}

// NewWithWriter builds a JSON logger on w; tests use it to capture output.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}
}

// Nop discards everything.
func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { l.write(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { l.write(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) { l.write(l.zl.Error(), msg, fields) }

func (l *Logger) write(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.AddTo(event)
	}
	event.Msg(msg)
}

// Field is one structured key/value pair.
type Field interface {
	AddTo(event *zerolog.Event)
	addToContext(ctx zerolog.Context) zerolog.Context
}

type field struct {
	event func(*zerolog.Event)
	ctx   func(zerolog.Context) zerolog.Context
}

func (f field) AddTo(event *zerolog.Event) { f.event(event) }

func (f field) addToContext(ctx zerolog.Context) zerolog.Context { return f.ctx(ctx) }

func String(key, value string) Field {
	return field{
		event: func(e *zerolog.Event) { e.Str(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Str(key, value) },
	}
}

func Int(key string, value int) Field {
	return field{
		event: func(e *zerolog.Event) { e.Int(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int(key, value) },
	}
}

func Int64(key string, value int64) Field {
	return field{
		event: func(e *zerolog.Event) { e.Int64(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int64(key, value) },
	}
}

func Float64(key string, value float64) Field {
	return field{
		event: func(e *zerolog.Event) { e.Float64(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Float64(key, value) },
	}
}

func Bool(key string, value bool) Field {
	return field{
		event: func(e *zerolog.Event) { e.Bool(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Bool(key, value) },
	}
}

func Error(err error) Field {
	return field{
		event: func(e *zerolog.Event) { e.Err(err) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}

func Any(key string, value interface{}) Field {
	return field{
		event: func(e *zerolog.Event) { e.Interface(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) },
	}
}

func Time(key string, value time.Time) Field {
	return field{
		event: func(e *zerolog.Event) { e.Time(key, value) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Time(key, value) },
	}
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}
