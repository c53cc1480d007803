package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Every pipeline component
// takes a *slog.Logger at construction; nothing logs through a global.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
