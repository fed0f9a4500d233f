package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/drengine/internal/config"
)

// NewLogger creates a structured zerolog.Logger with the level taken from
// the config. Components tag themselves with a "component" field.
func NewLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
