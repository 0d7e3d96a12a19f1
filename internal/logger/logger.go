package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface
type Logger interface {
	Log() *zerolog.Event
	Fatal() *zerolog.Event
	Err(err error) *zerolog.Event
	Error() *zerolog.Event
	Warn() *zerolog.Event
	Info() *zerolog.Event
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	With() zerolog.Context
	SetLogLevel(level string)
}

// Config selects log outputs. Path is a directory; when set, logs are also
// written to lifecard.log inside it and rotated by size.
type Config struct {
	Level          string
	Path           string
	MaxFileSize    int
	MaxBackupCount int
	Pretty         bool
}

// DefaultLogger default logging controller
type DefaultLogger struct {
	mu            sync.RWMutex
	log           zerolog.Logger
	level         zerolog.Level
	writers       []io.Writer
	lumberjackLog *lumberjack.Logger
}

func New(cfg Config) Logger {
	l := &DefaultLogger{
		writers: make([]io.Writer, 0, 2),
		level:   zerolog.DebugLevel,
	}

	// use pretty logging for dev only
	if cfg.Pretty {
		l.writers = append(l.writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l.writers = append(l.writers, os.Stderr)
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		} else {
			l.lumberjackLog = &lumberjack.Logger{
				Filename:   filepath.Join(cfg.Path, "lifecard.log"),
				MaxSize:    cfg.MaxFileSize,
				MaxBackups: cfg.MaxBackupCount,
			}
			l.writers = append(l.writers, l.lumberjackLog)
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	l.log = zerolog.New(io.MultiWriter(l.writers...)).With().Stack().Logger()
	l.SetLogLevel(cfg.Level)

	return l
}

// Mock returns a logger that discards everything.
func Mock() Logger {
	return &DefaultLogger{
		log:   zerolog.Nop(),
		level: zerolog.Disabled,
	}
}

// ParseLevel maps a configured level name to zerolog. Unknown names disable
// logging.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

func (l *DefaultLogger) SetLogLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = ParseLevel(level)
	l.log = l.log.Level(l.level)
}

// Level reports the active log level.
func (l *DefaultLogger) Level() zerolog.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *DefaultLogger) current() *zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lg := l.log
	return &lg
}

// Log log something without level.
func (l *DefaultLogger) Log() *zerolog.Event {
	return l.current().Log().Timestamp()
}

// Fatal log something at fatal level. This will exit the process.
func (l *DefaultLogger) Fatal() *zerolog.Event {
	return l.current().Fatal().Timestamp()
}

// Error log something at Error level
func (l *DefaultLogger) Error() *zerolog.Event {
	return l.current().Error().Timestamp()
}

// Err log something at Err level
func (l *DefaultLogger) Err(err error) *zerolog.Event {
	return l.current().Err(err).Timestamp()
}

// Warn log something at warning level.
func (l *DefaultLogger) Warn() *zerolog.Event {
	return l.current().Warn().Timestamp()
}

// Info log something at info level.
func (l *DefaultLogger) Info() *zerolog.Event {
	return l.current().Info().Timestamp()
}

// Debug log something at debug level.
func (l *DefaultLogger) Debug() *zerolog.Event {
	return l.current().Debug().Timestamp()
}

// Trace log something at trace level.
func (l *DefaultLogger) Trace() *zerolog.Event {
	return l.current().Trace().Timestamp()
}

// With log with context
func (l *DefaultLogger) With() zerolog.Context {
	return l.current().With().Timestamp()
}
