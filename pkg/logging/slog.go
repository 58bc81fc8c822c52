package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger tagged with the owning service name,
// so log aggregation can separate the three processes without parsing
// container metadata.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(h).With("service", service)
}
