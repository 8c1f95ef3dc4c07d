package fixeltrack

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/mapping"
)

// Logger wraps slog.Logger with fixeltrack-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to w.
// A nil writer selects stderr.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable text to w.
// A nil writer selects stderr.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithComponent tags the logger with the pipeline stage it serves.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogBuild logs the outcome of building the fixel index.
func (l *Logger) LogBuild(ctx context.Context, stats fixel.BuildStats, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fixel index build failed",
			"voxels", stats.Voxels,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	if stats.Skipped > 0 {
		l.WarnContext(ctx, "fixel index built with skipped voxels",
			"occupied", stats.Occupied,
			"fixels", stats.Fixels,
			"skipped", stats.Skipped,
			"elapsed", elapsed,
		)
		return
	}
	l.InfoContext(ctx, "fixel index built",
		"voxels", stats.Voxels,
		"occupied", stats.Occupied,
		"fixels", stats.Fixels,
		"elapsed", elapsed,
	)
}

// LogMapping logs the outcome of mapping a batch of streamlines.
func (l *Logger) LogMapping(ctx context.Context, n int, stats mapping.Stats, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "streamline mapping failed",
			"streamlines", n,
			"mapped", stats.Streamlines,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "streamlines mapped",
		"streamlines", stats.Streamlines,
		"records", stats.Records,
		"splits", stats.Splits,
		"bytes", stats.Bytes,
		"peak_bytes", stats.PeakBytes,
		"elapsed", elapsed,
	)
}

// LogEncode logs a contribution list serialization.
func (l *Logger) LogEncode(ctx context.Context, lists int, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "contribution encode failed",
			"lists", lists,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "contributions encoded",
		"lists", lists,
		"bytes", bytes,
	)
}
