package logging

import (
	"context"
	"log/slog"
)

// ConsolePrinter routes script console output to a logger. It satisfies the
// Printer interface of github.com/dop251/goja_nodejs/console.
type ConsolePrinter struct {
	Logger *slog.Logger
}

func (p ConsolePrinter) Log(s string)   { p.emit(slog.LevelInfo, s) }
func (p ConsolePrinter) Warn(s string)  { p.emit(slog.LevelWarn, s) }
func (p ConsolePrinter) Error(s string) { p.emit(slog.LevelError, s) }

func (p ConsolePrinter) emit(level slog.Level, s string) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), level, s, slog.String("source", "console"))
}
