package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pexelscraper/pkg/config"
)

// Logger is the structured logger components depend on
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	// Derived loggers carry their fields on every later entry; the
	// receiver is left unchanged.
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// zlogger binds fields through zerolog's own context
type zlogger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to stderr, so progress lines on stdout stay
// readable
func New(cfg *config.LoggingConfig) (Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a Logger whose console output is written to out.
// When cfg.File is set, JSON lines are also appended to that file.
func NewWithWriter(cfg *config.LoggingConfig, out io.Writer) (Logger, error) {
	zl, err := build(cfg, out)
	if err != nil {
		return nil, err
	}
	return &zlogger{zl: zl}, nil
}

func build(cfg *config.LoggingConfig, out io.Writer) (zerolog.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var sink io.Writer = consoleWriter(out)
	if cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Logger{}, err
		}
		sink = zerolog.MultiLevelWriter(sink, file)
	}

	return zerolog.New(sink).With().Timestamp().Str("app", "pexelscraper").Logger(), nil
}

var levelTags = map[string]string{
	"debug": "\033[37mDEBG\033[0m",
	"info":  "\033[32mINFO\033[0m",
	"warn":  "\033[33mWARN\033[0m",
	"error": "\033[31mERRO\033[0m",
	"fatal": "\033[35mFATL\033[0m",
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		TimeFormat:    "15:04:05",
		FieldsExclude: []string{"app"},
		FormatLevel: func(i interface{}) string {
			name := fmt.Sprint(i)
			if tag, ok := levelTags[name]; ok {
				return tag
			}
			return strings.ToUpper(name)
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("| %s", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[36m%s\033[0m:", i)
		},
	}
}

func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level: %q", level)
}

func (l *zlogger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *zlogger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *zlogger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *zlogger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *zlogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *zlogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *zlogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *zlogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{zl: l.zl.With().Fields(map[string]interface{}{key: value}).Logger()}
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	return &zlogger{zl: l.zl.With().Fields(fields).Logger()}
}

// WithError returns l itself for a nil err
func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlogger{zl: l.zl.With().Err(err).Logger()}
}

var globalLogger Logger

// Initialize builds the process-wide logger from cfg. The zerolog package
// logger is pointed at the same output.
func Initialize(cfg *config.LoggingConfig) error {
	zl, err := build(cfg, os.Stderr)
	if err != nil {
		return err
	}
	log.Logger = zl
	globalLogger = &zlogger{zl: zl}
	return nil
}

// GetLogger returns the process-wide logger, creating an info-level one on
// first use when Initialize was never called
func GetLogger() Logger {
	if globalLogger == nil {
		globalLogger, _ = New(&config.LoggingConfig{Level: "info"})
	}
	return globalLogger
}
