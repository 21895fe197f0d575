package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/netedge/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stdout, tagged
// with the service name and, when a device is configured, the edge id.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.Edge.ID != "" {
		ctx = ctx.Str("edge_id", cfg.Edge.ID)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return ctx.Logger().Level(level)
}
