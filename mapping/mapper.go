package mapping

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/directions"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/internal/bitset"
	"github.com/hupe1980/fixeltrack/internal/resource"
)

// Lookup resolves a voxel and direction bin to an absolute fixel index, 0
// meaning "no fixel". *fixel.Map satisfies it.
type Lookup interface {
	Header() geom.Header
	Dir2Fixel(voxel geom.Point3d, bin int) uint32
}

// Streamline is one track: its position in the input and its ordered samples
// in scanner space.
type Streamline struct {
	Index  int
	Points []geom.Vec3
}

// Stats summarises a MapAll run. Bytes is the memory charged for the returned
// lists and PeakBytes the highest charge the mapper has held so far. Missing
// counts the indices in [0, n) that the source never yielded.
type Stats struct {
	Streamlines int64
	Records     int64
	Splits      int64
	Bytes       int64
	PeakBytes   int64
	Missing     int64
}

// Mapper maps streamlines onto a frozen fixel index. A Mapper is safe for
// concurrent use.
type Mapper struct {
	lookup Lookup
	header geom.Header
	dirs   *directions.Set
	scale  contribution.Scale
	opts   options
	rc     *resource.Controller

	// scratch workers reused by Map and MapAll
	pool sync.Pool
}

// New creates a Mapper. The lookup tables of the index must have been built
// for dirs.
func New(lookup Lookup, dirs *directions.Set, scale contribution.Scale, optFns ...Option) (*Mapper, error) {
	if dirs == nil {
		return nil, fmt.Errorf("mapping: %w: nil direction set", directions.ErrInvalidDirection)
	}
	if !scale.Valid() {
		return nil, fmt.Errorf("mapping: %w: uninitialised scale", contribution.ErrInvalidVoxelSize)
	}
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	h := lookup.Header()
	if o.stepSize == 0 {
		o.stepSize = h.MinVoxelSize() / 2
	}
	if !(o.stepSize > 0) || math.IsInf(float64(o.stepSize), 0) {
		return nil, fmt.Errorf("mapping: %w: %v", ErrInvalidStepSize, o.stepSize)
	}

	return &Mapper{
		lookup: lookup,
		header: h,
		dirs:   dirs,
		scale:  scale,
		opts:   o,
		rc:     resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit}),
	}, nil
}

// Scale returns the quantization scale of the produced lists.
func (m *Mapper) Scale() contribution.Scale { return m.scale }

// MemoryUsage returns the bytes currently charged for produced lists.
func (m *Mapper) MemoryUsage() int64 { return m.rc.MemoryUsage() }

// Release returns the memory charged for lists to the mapper's budget. Call it
// once per MapAll result when the lists are discarded. Refunds are capped at the
// current charge.
func (m *Mapper) Release(lists []contribution.List) {
	for _, l := range lists {
		m.rc.ReleaseMemory(l.SizeBytes())
	}
}

// Map builds the contribution list of a single streamline.
func (m *Mapper) Map(points []geom.Vec3) contribution.List {
	w := m.getWorker()
	defer m.putWorker(w)
	return w.mapStreamline(points)
}

// MapAll maps every streamline of src and returns one list per index in
// [0, n). Indices that src never yields hold an empty List.
//
// On error or cancellation the partial results are discarded.
func (m *Mapper) MapAll(ctx context.Context, src iter.Seq[Streamline], n int) ([]contribution.List, Stats, error) {
	if n < 0 {
		return nil, Stats{}, fmt.Errorf("%w: count %d", ErrIndexOutOfRange, n)
	}
	out := make([]contribution.List, n)
	claimed := bitset.New(uint64(n))

	var (
		streamlines, records, splits, charged atomic.Int64
	)
	progress := rate.Sometimes{Interval: m.opts.progressInterval}

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan Streamline, m.opts.workers)

	g.Go(func() error {
		defer close(queue)
		for s := range src {
			select {
			case queue <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < m.opts.workers; i++ {
		g.Go(func() error {
			w := m.getWorker()
			defer m.putWorker(w)
			for s := range queue {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if s.Index < 0 || s.Index >= n {
					return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, s.Index, n)
				}
				if claimed.TestAndSet(uint64(s.Index)) {
					return fmt.Errorf("%w: %d", ErrDuplicateIndex, s.Index)
				}

				list := w.mapStreamline(s.Points)
				size := list.SizeBytes()
				if err := m.rc.AcquireMemory(size); err != nil {
					return fmt.Errorf("streamline %d: %w", s.Index, err)
				}
				charged.Add(size)
				out[s.Index] = list

				records.Add(int64(list.Len()))
				splits.Add(int64(w.builder.Splits()))
				done := streamlines.Add(1)
				progress.Do(func() {
					m.opts.logger.InfoContext(gctx, "mapping streamlines", "mapped", done, "records", records.Load())
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.rc.ReleaseMemory(charged.Load())
		if errors.Is(err, ErrMemoryLimitExceeded) {
			m.opts.logger.WarnContext(ctx, "contribution lists exceed memory limit",
				"limit", m.rc.MemoryLimit(),
				"peak", m.rc.PeakMemoryUsage(),
			)
		}
		return nil, Stats{}, err
	}

	stats := Stats{
		Streamlines: streamlines.Load(),
		Records:     records.Load(),
		Splits:      splits.Load(),
		Bytes:       charged.Load(),
		PeakBytes:   m.rc.PeakMemoryUsage(),
		Missing:     int64(n - claimed.Count()),
	}
	m.opts.logger.InfoContext(ctx, "streamline mapping complete",
		"streamlines", stats.Streamlines,
		"records", stats.Records,
		"splits", stats.Splits,
		"bytes", stats.Bytes,
		"missing", stats.Missing,
	)
	return out, stats, nil
}

// FromSlice yields tracks[i] with index i.
func FromSlice(tracks [][]geom.Vec3) iter.Seq[Streamline] {
	return func(yield func(Streamline) bool) {
		for i, pts := range tracks {
			if !yield(Streamline{Index: i, Points: pts}) {
				return
			}
		}
	}
}
