package logger

import (
    "io"
    "os"
    "strings"
    "time"

    "github.com/HamedShams/ticket-pulse/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

func New(cfg config.Config) zerolog.Logger {
    logger := NewWriter(cfg, os.Stdout)
    log.Logger = logger
    return logger
}

// NewWriter builds the same logger on an arbitrary writer, for tools whose
// stdout carries data.
func NewWriter(cfg config.Config, out io.Writer) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
    if err != nil || lvl == zerolog.NoLevel { lvl = zerolog.InfoLevel }
    if cfg.AppEnv == "dev" {
        output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
        return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
    }
    zerolog.TimeFieldFormat = time.RFC3339
    return zerolog.New(out).Level(lvl).With().Timestamp().Str("svc", "ticket-pulse").Logger()
}
