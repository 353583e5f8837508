package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's logger from the --log-level and --log-format
// settings, writing to outW. Both values are validated at the CLI boundary;
// anything unrecognized falls back to info-level text output.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
