package fixeltrack

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/hupe1980/fixeltrack/codec"
	"github.com/hupe1980/fixeltrack/directions"
	"github.com/hupe1980/fixeltrack/geom"
)

// DefaultDirections is the size of the default direction set used to bin
// streamline tangents.
const DefaultDirections = 1281

type options struct {
	workers          int
	stepSize         float32
	memoryLimit      int64
	progressInterval time.Duration
	dirs             *directions.Set
	mask             func(geom.Point3d) bool
	compression      codec.Compression
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Pipeline.
type Option func(*options)

// WithWorkers sets the number of concurrent segmenters and mapping workers.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithStepSize sets the longest piece streamline segments are split into
// before voxel and direction lookup. 0 selects half the smallest voxel size.
func WithStepSize(mm float32) Option {
	return func(o *options) {
		o.stepSize = mm
	}
}

// WithMemoryLimit caps the bytes held by live contribution lists.
// 0 disables the limit.
//
// Example:
//
//	p, _ := fixeltrack.New(header, fixeltrack.WithMemoryLimit(8<<30))
//	lists, _, err := p.MapStreamlines(ctx, src, n)
//	if errors.Is(err, fixeltrack.ErrMemoryLimitExceeded) {
//	    // retry with fewer streamlines
//	}
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithProgressInterval sets how often long mapping runs report progress.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		o.progressInterval = d
	}
}

// WithDirections sets the direction set the segmenter's lookup tables are
// built for. Segmentations must carry one lookup entry per direction.
func WithDirections(dirs *directions.Set) Option {
	return func(o *options) {
		if dirs != nil {
			o.dirs = dirs
		}
	}
}

// WithMask restricts index construction to voxels for which mask returns true.
func WithMask(mask func(geom.Point3d) bool) Option {
	return func(o *options) {
		o.mask = mask
	}
}

// WithCompression sets the block compression used by WriteContributions.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures metrics collection for builds, mapping
// and serialization.
//
// Example:
//
//	metrics := &fixeltrack.BasicMetricsCollector{}
//	p, _ := fixeltrack.New(header, fixeltrack.WithMetricsCollector(metrics))
//	// ... build and map ...
//	stats := metrics.GetStats()
//	fmt.Printf("Streamlines: %d, Splits: %d\n", stats.Streamlines, stats.Splits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(nil, level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(nil, level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers:          runtime.GOMAXPROCS(0),
		progressInterval: 5 * time.Second,
		compression:      codec.CompressionZSTD,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.dirs == nil {
		o.dirs = directions.Fibonacci(DefaultDirections)
	}
	return o
}
