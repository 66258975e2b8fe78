package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger wraps zerolog.Logger with the service name and helpers for
// record-scoped fields.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// New creates a new logger instance with configuration.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return newLogger(outputWriter(cfg.Output), cfg, serviceName).Level(level)
}

// NewWithWriter creates a JSON logger writing to w. Tests use it to capture
// diagnostics.
func NewWithWriter(w io.Writer, level, serviceName string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	cfg := &Config{Format: FormatJSON, Timestamp: true}
	return newLogger(w, cfg, serviceName).Level(lvl)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    FormatConsole,
		Output:    "stderr",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

func newLogger(w io.Writer, cfg *Config, serviceName string) *Logger {
	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, FormatConsole) {
		zl = newConsoleLogger(w, cfg.NoColor)
	} else {
		zl = zerolog.New(w)
	}
	zc := zl.With()
	if serviceName != "" {
		zc = zc.Str(FieldService, serviceName)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{logger: zc.Logger(), service: serviceName}
}

// Level returns a copy of the logger filtered at lvl.
func (l *Logger) Level(lvl zerolog.Level) *Logger {
	return &Logger{logger: l.logger.Level(lvl), service: l.service}
}

// Service returns the service name the logger was created with.
func (l *Logger) Service() string { return l.service }

// WithContext returns a logger enriched with the request, record and trace
// ids stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.logger.With()
	for _, key := range contextFields {
		if v := ctx.Value(contextKey(key)); v != nil {
			zc = zc.Str(key, fmt.Sprintf("%v", v))
		}
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Debug(), msg, fields)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Info(), msg, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Warn(), msg, fields)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Error(), msg, fields)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	emit(l.logger.Fatal(), msg, fields)
}

func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: open %s: %v, falling back to stderr\n", output, err)
			return os.Stderr
		}
		return f
	}
}

var levelTags = map[string]string{
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
}

var levelColors = map[string]string{
	"debug": "\033[36m",
	"info":  "\033[32m",
	"warn":  "\033[33m",
	"error": "\033[31m",
	"fatal": "\033[35m",
}

func newConsoleLogger(w io.Writer, noColor bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToLower(fmt.Sprintf("%v", i))
			tag, ok := levelTags[lvl]
			if !ok {
				tag = strings.ToUpper(lvl)
			}
			if noColor {
				return "[" + tag + "]"
			}
			return levelColors[lvl] + "[" + tag + "]\033[0m"
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	})
}
