package action

import (
	"context"
	"log/slog"
)

// LogWriter records the claimed key in the log. It is the observable proxy
// for "the action ran".
type LogWriter struct {
	logger *slog.Logger
}

func NewLogWriter(logger *slog.Logger) *LogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Perform(ctx context.Context, key string) error {
	w.logger.InfoContext(ctx, "write key", "key", key)
	return nil
}
