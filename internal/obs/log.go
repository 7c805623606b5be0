// Package obs holds the ambient observability stack shared by every wrtgo
// subsystem: structured logging (zerolog) and metrics (prometheus).
package obs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-wide logger instance. Subsystems derive child
// loggers from it with WithComponent rather than constructing their own.
var Logger zerolog.Logger

// Level is the subset of zerolog levels exposed through Config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init installs the global Logger. Safe to call more than once (e.g. from
// both a host embedder and the CLI); the last call wins.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// A sane default so packages used as a library (no CLI, no explicit
	// Init call) still get structured output instead of panicking on a
	// zero-value logger.
	Init(Config{Level: InfoLevel})
}

// WithComponent returns a child logger tagged with the owning subsystem.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithInstanceID tags a child logger with the component-instance id.
func WithInstanceID(logger zerolog.Logger, instanceID uint32) zerolog.Logger {
	return logger.With().Uint32("instance_id", instanceID).Logger()
}

// WithTaskID tags a child logger with the async task id.
func WithTaskID(logger zerolog.Logger, taskID uint64) zerolog.Logger {
	return logger.With().Uint64("task_id", taskID).Logger()
}
