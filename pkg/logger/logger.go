package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a slog.Logger tagged with the service name. Production builds emit JSON;
// development gets the text handler for readability.
func New(service, environment string, level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, service, environment, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service, environment string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if environment == "development" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", service)
}
