package fixeltrack

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/hupe1980/fixeltrack/codec"
	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/density"
	"github.com/hupe1980/fixeltrack/directions"
	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/mapping"
)

// Pipeline ties together the fixel index of one image, the streamline mapper
// that runs against it and the density model that aggregates the results.
//
// The index is built exactly once with BuildIndex. After that, MapStreamlines
// may be called concurrently. The density model is not safe for concurrent use.
type Pipeline struct {
	header geom.Header
	scale  contribution.Scale
	opts   options

	index *fixel.Map[density.Fixel]
	model *density.Model

	mu       sync.RWMutex
	attempts int
	mapper   *mapping.Mapper
}

// New creates a Pipeline for an image with geometry h.
func New(h geom.Header, optFns ...Option) (*Pipeline, error) {
	o := applyOptions(optFns)

	if err := h.Validate(); err != nil {
		return nil, err
	}
	scale, err := contribution.NewScale(h.VoxelSize)
	if err != nil {
		return nil, err
	}
	if _, err := codec.ParseCompression(o.compression.String()); err != nil {
		return nil, err
	}
	index, err := fixel.New(h, density.NewFixel)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		header: h,
		scale:  scale,
		opts:   o,
		index:  index,
		model:  density.NewModel(index, scale),
	}, nil
}

// Header returns the image geometry.
func (p *Pipeline) Header() geom.Header { return p.header }

// Scale returns the quantization scale of every contribution list the
// pipeline produces.
func (p *Pipeline) Scale() contribution.Scale { return p.scale }

// Directions returns the direction set lookup tables are indexed by.
func (p *Pipeline) Directions() *directions.Set { return p.opts.dirs }

// Index returns the fixel index.
func (p *Pipeline) Index() *fixel.Map[density.Fixel] { return p.index }

// Model returns the density model backed by the index.
func (p *Pipeline) Model() *density.Model { return p.model }

// BuildIndex segments every voxel with seg and freezes the fixel index.
//
// Every non-empty segmentation must carry one lookup entry per direction of
// the pipeline's direction set. BuildIndex may only be attempted once; a
// failed build leaves the index unusable.
func (p *Pipeline) BuildIndex(ctx context.Context, seg fixel.Segmenter) (fixel.BuildStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attempts > 0 {
		return fixel.BuildStats{}, ErrIndexBuilt
	}
	p.attempts++

	start := time.Now()
	stats, err := fixel.Build(ctx, p.index, p.checkedSegmenter(seg),
		fixel.WithWorkers(p.opts.workers),
		fixel.WithMask(p.opts.mask),
		fixel.WithLogger(p.opts.logger.WithComponent("build").Logger),
	)
	elapsed := time.Since(start)
	err = translateError(err)

	p.opts.metricsCollector.RecordBuild(stats, elapsed, err)
	p.opts.logger.LogBuild(ctx, stats, elapsed, err)
	if err != nil {
		return fixel.BuildStats{}, err
	}

	p.model = density.NewModel(p.index, p.scale)
	p.mapper, err = mapping.New(p.index, p.opts.dirs, p.scale,
		mapping.WithWorkers(p.opts.workers),
		mapping.WithStepSize(p.opts.stepSize),
		mapping.WithMemoryLimit(p.opts.memoryLimit),
		mapping.WithProgressInterval(p.opts.progressInterval),
		mapping.WithLogger(p.opts.logger.WithComponent("mapping").Logger),
	)
	if err != nil {
		return fixel.BuildStats{}, err
	}
	return stats, nil
}

func (p *Pipeline) checkedSegmenter(seg fixel.Segmenter) fixel.Segmenter {
	bins := p.opts.dirs.Size()
	return fixel.SegmenterFunc(func(ctx context.Context, voxel geom.Point3d) (fixel.Lobes, error) {
		lobes, err := seg.Segment(ctx, voxel)
		if err != nil || lobes.Empty() {
			return lobes, err
		}
		if len(lobes.LUT) != bins {
			return fixel.Lobes{}, &ErrInvalidLookupTable{Voxel: lobes.Voxel, Bins: len(lobes.LUT), Want: bins}
		}
		return lobes, nil
	})
}

func (p *Pipeline) getMapper() (*mapping.Mapper, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.mapper == nil {
		return nil, ErrIndexNotBuilt
	}
	return p.mapper, nil
}

// MapStreamlines maps n streamlines from src onto the index. The result holds
// one contribution list per streamline index.
func (p *Pipeline) MapStreamlines(ctx context.Context, src iter.Seq[mapping.Streamline], n int) ([]contribution.List, mapping.Stats, error) {
	m, err := p.getMapper()
	if err != nil {
		return nil, mapping.Stats{}, err
	}

	start := time.Now()
	lists, stats, err := m.MapAll(ctx, src, n)
	elapsed := time.Since(start)
	err = translateError(err)

	p.opts.metricsCollector.RecordMapping(stats, elapsed, err)
	p.opts.logger.LogMapping(ctx, n, stats, elapsed, err)
	if err != nil {
		return nil, mapping.Stats{}, err
	}
	return lists, stats, nil
}

// Map builds the contribution list of a single streamline.
func (p *Pipeline) Map(points []geom.Vec3) (contribution.List, error) {
	m, err := p.getMapper()
	if err != nil {
		return contribution.List{}, err
	}
	return m.Map(points), nil
}

// Release returns the memory charged for lists produced by MapStreamlines.
// Each result should be released once. Lists from Map or ReadContributions
// were never charged; the refund is capped at the current charge, so passing
// them is harmless but returns budget held by other results.
func (p *Pipeline) Release(lists []contribution.List) {
	if m, err := p.getMapper(); err == nil {
		m.Release(lists)
	}
}

// MemoryUsage returns the bytes currently charged for live contribution lists.
func (p *Pipeline) MemoryUsage() int64 {
	m, err := p.getMapper()
	if err != nil {
		return 0
	}
	return m.MemoryUsage()
}

// Accumulate adds lists to the track density of the model.
func (p *Pipeline) Accumulate(lists ...contribution.List) {
	p.model.Accumulate(lists...)
}

// WriteContributions serializes lists together with the pipeline's scale.
func (p *Pipeline) WriteContributions(ctx context.Context, w io.Writer, lists []contribution.List) error {
	cw := &countingWriter{w: w}
	start := time.Now()
	err := codec.Encode(cw, p.scale, lists, codec.Options{Compression: p.opts.compression})

	p.opts.metricsCollector.RecordEncode(len(lists), cw.n, time.Since(start), err)
	p.opts.logger.LogEncode(ctx, len(lists), cw.n, err)
	return err
}

// ReadContributions reads lists written by WriteContributions. The stream must
// have been quantized for the same voxel geometry and every record must
// address a valid fixel of the pipeline's index, so the result can be passed
// to Accumulate. The returned lists are not charged to the memory limit and
// need no Release.
func (p *Pipeline) ReadContributions(r io.Reader) ([]contribution.List, error) {
	scale, lists, err := codec.Decode(r)
	if err != nil {
		return nil, err
	}
	if scale.Diagonal() != p.scale.Diagonal() {
		return nil, fmt.Errorf("%w: stream diagonal %v, pipeline diagonal %v",
			ErrScaleMismatch, scale.Diagonal(), p.scale.Diagonal())
	}

	p.mu.RLock()
	fixels := uint32(p.index.Len())
	p.mu.RUnlock()
	for i, l := range lists {
		for r := range l.All() {
			if fi := r.FixelIndex(); fi == 0 || fi >= fixels {
				return nil, fmt.Errorf("%w: list %d references fixel %d, index holds fixels [1,%d)",
					ErrIndexMismatch, i, fi, fixels)
			}
		}
	}
	return lists, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
