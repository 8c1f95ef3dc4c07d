package mapping

import (
	"log/slog"
	"runtime"
	"time"
)

type options struct {
	workers          int
	stepSize         float32
	memoryLimit      int64
	logger           *slog.Logger
	progressInterval time.Duration
}

func defaultOptions() options {
	return options{
		workers:          runtime.GOMAXPROCS(0),
		logger:           slog.New(slog.DiscardHandler),
		progressInterval: 5 * time.Second,
	}
}

// Option configures a Mapper.
type Option func(*options)

// WithWorkers sets the number of concurrent workers used by MapAll.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithStepSize sets the longest piece a streamline segment is split into.
// The default is half the smallest voxel dimension.
func WithStepSize(mm float32) Option {
	return func(o *options) {
		o.stepSize = mm
	}
}

// WithMemoryLimit caps the bytes held by the contribution lists of the mapper.
// 0 disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithLogger sets the logger for progress reporting.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgressInterval sets how often MapAll logs progress.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		o.progressInterval = d
	}
}
