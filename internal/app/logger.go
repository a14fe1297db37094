package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always emits JSON so the
// authorization decision trail stays machine-parseable; elsewhere LOG_FORMAT
// picks between json and text output.
func NewLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})
	}
	return slog.New(handler).With(slog.String("service", "prontivus"))
}
