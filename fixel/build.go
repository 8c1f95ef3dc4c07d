package fixel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fixeltrack/geom"
)

// Segmenter produces the FOD-lobe segmentation of one voxel.
// Implementations must be safe for concurrent use.
type Segmenter interface {
	Segment(ctx context.Context, voxel geom.Point3d) (Lobes, error)
}

// SegmenterFunc adapts a function to the Segmenter interface.
type SegmenterFunc func(ctx context.Context, voxel geom.Point3d) (Lobes, error)

// Segment implements Segmenter.
func (f SegmenterFunc) Segment(ctx context.Context, voxel geom.Point3d) (Lobes, error) {
	return f(ctx, voxel)
}

// BuildStats summarises a Build run.
type BuildStats struct {
	// Voxels is the number of voxels handed to the segmenter.
	Voxels int
	// Occupied is the number of voxels that received an entry.
	Occupied int
	// Fixels is the number of valid fixels in the map.
	Fixels int
	// Skipped counts segmentations rejected because their position was out of bounds.
	Skipped int
}

type buildOptions struct {
	workers int
	mask    func(geom.Point3d) bool
	logger  *slog.Logger
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithWorkers sets the number of concurrent segmenters.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) BuildOption {
	return func(o *buildOptions) {
		o.workers = n
	}
}

// WithMask restricts segmentation to voxels for which mask returns true.
func WithMask(mask func(geom.Point3d) bool) BuildOption {
	return func(o *buildOptions) {
		o.mask = mask
	}
}

// WithLogger sets the logger used to report skipped segmentations.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build segments every voxel of m's grid and assigns the results.
//
// Segmentation runs on a pool of workers; all results are assigned by a single
// writer goroutine, so the growth of the global fixel array is serialised.
// Results whose position falls outside the grid are counted and skipped. Any
// other error aborts the build. On success the map is frozen.
func Build[F any](ctx context.Context, m *Map[F], seg Segmenter, optFns ...BuildOption) (BuildStats, error) {
	o := buildOptions{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	h := m.Header()
	g, gctx := errgroup.WithContext(ctx)
	voxels := make(chan geom.Point3d, o.workers)
	results := make(chan Lobes, o.workers)

	var queued int
	g.Go(func() error {
		defer close(voxels)
		for i := 0; i < h.NumVoxels(); i++ {
			p := h.Point(i)
			if o.mask != nil && !o.mask(p) {
				continue
			}
			select {
			case voxels <- p:
				queued++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for p := range voxels {
				lobes, err := seg.Segment(gctx, p)
				if err != nil {
					return fmt.Errorf("segment voxel %v: %w", p, err)
				}
				if lobes.Empty() {
					continue
				}
				select {
				case results <- lobes:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var skipped int
	g.Go(func() error {
		for in := range results {
			err := m.Assign(in)
			if errors.Is(err, ErrOutOfBounds) {
				skipped++
				o.logger.WarnContext(gctx, "segmentation outside image bounds", "voxel", in.Voxel.String())
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return BuildStats{}, err
	}
	m.Freeze()

	stats := BuildStats{
		Voxels:   queued,
		Occupied: m.NumVoxels(),
		Fixels:   m.Len() - 1,
		Skipped:  skipped,
	}
	o.logger.InfoContext(ctx, "fixel map built",
		"voxels", stats.Voxels,
		"occupied", stats.Occupied,
		"fixels", stats.Fixels,
		"skipped", stats.Skipped,
	)
	return stats, nil
}
