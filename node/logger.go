package node

import (
	"log/slog"

	"github.com/ethrex/ethrex-state/log"
)

// logLevel converts a Config.LogLevel string to a slog.Level, per
// Validate's restriction to debug/info/warn/error.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger installs the process-wide default logger at the level named
// by c.LogLevel.
func (c *Config) InitLogger() {
	log.SetDefault(log.New(logLevel(c.LogLevel)))
}
