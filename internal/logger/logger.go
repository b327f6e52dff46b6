package logger

import (
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
)

// Config controls logger behavior.
type Config struct {
    Level  string // debug, info, warn, error
    Pretty bool   // human-readable console output
}

// New creates a configured zerolog logger.
func New(cfg Config) zerolog.Logger {
    level := parseLevel(cfg.Level)

    var logger zerolog.Logger
    if cfg.Pretty {
        output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
        logger = zerolog.New(output)
    } else {
        logger = zerolog.New(os.Stdout)
    }
    return logger.Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
    switch strings.ToLower(s) {
    case "debug":
        return zerolog.DebugLevel
    case "warn":
        return zerolog.WarnLevel
    case "error":
        return zerolog.ErrorLevel
    default:
        return zerolog.InfoLevel
    }
}
