package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger with a JSON handler writing to
// os.Stdout. It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		defaultLogger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.DebugLevel)
		defaultLogger.Info().Msg("logger initialized")
	})
}

// SetLevel adjusts the minimum level emitted by the default logger.
func SetLevel(level string) {
	Init()
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	defaultLogger = defaultLogger.Level(parsed)
}

// Get returns the initialized default logger. It calls Init() to ensure the
// logger is ready before returning it.
func Get() *zerolog.Logger {
	Init()
	return &defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string, kv ...any) {
	Get().Info().Fields(kv).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, kv ...any) {
	Get().Warn().Fields(kv).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, kv ...any) {
	Get().Error().Fields(kv).Err(err).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, kv ...any) {
	Get().Debug().Fields(kv).Msg(msg)
}
