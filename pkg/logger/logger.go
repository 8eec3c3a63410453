package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger.
type Config struct {
	Level       string
	Pretty      bool
	ServiceName string
}

var (
	mu     sync.RWMutex
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// New builds a zerolog.Logger writing to out.
func New(out io.Writer, cfg Config) zerolog.Logger {
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		l = l.With().Str("service", cfg.ServiceName).Logger()
	}
	return l
}

// Init replaces the global logger. Call once at startup.
func Init(cfg Config) {
	SetLogger(New(os.Stdout, cfg))
}

// SetLogger swaps the global logger, mostly useful in tests.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the global logger.
func L() *zerolog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	return &l
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Convenience functions

func Info(format string, v ...interface{}) {
	L().Info().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	L().Warn().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	L().Error().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	L().Debug().Msgf(format, v...)
}

// Fatal logs and exits the process.
func Fatal(format string, v ...interface{}) {
	L().Fatal().Msgf(format, v...)
}
