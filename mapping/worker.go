package mapping

import (
	"math"

	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/geom"
)

type dixelKey struct {
	voxel geom.Point3d
	bin   int
}

// worker holds the per-goroutine scratch state of a Mapper.
type worker struct {
	m       *Mapper
	builder *contribution.Builder
	// length per (voxel, bin) pair, kept in first-visit order
	index  map[dixelKey]int
	keys   []dixelKey
	length []float32
}

func (m *Mapper) newWorker() *worker {
	return &worker{
		m:       m,
		builder: contribution.NewBuilder(m.scale),
		index:   make(map[dixelKey]int),
	}
}

// maxPooledDixels bounds the scratch capacity a worker may keep when returned
// to the pool.
const maxPooledDixels = 1 << 16

func (m *Mapper) getWorker() *worker {
	if w, ok := m.pool.Get().(*worker); ok {
		return w
	}
	return m.newWorker()
}

func (m *Mapper) putWorker(w *worker) {
	if cap(w.keys) > maxPooledDixels {
		return
	}
	m.pool.Put(w)
}

func (w *worker) reset() {
	w.builder.Reset()
	clear(w.index)
	w.keys = w.keys[:0]
	w.length = w.length[:0]
}

func (w *worker) mapStreamline(points []geom.Vec3) contribution.List {
	w.reset()
	m := w.m

	// length travelled outside the grid
	var outside float32
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		seg := b.Sub(a)
		l := seg.Norm()
		if !(l > 0) || math.IsInf(float64(l), 0) {
			continue
		}
		ca, cb, ok := m.header.Clip(a, b)
		if !ok {
			outside += l
			continue
		}
		inside := min(cb.Sub(ca).Norm(), l)
		outside += l - inside

		// Only the clipped part is split, so the work per segment is bounded
		// by the grid extent.
		pieces := int(math.Ceil(float64(inside / m.opts.stepSize)))
		if pieces == 0 {
			continue
		}
		bin := m.dirs.Select(seg)
		piece := inside / float32(pieces)
		for k := 0; k < pieces; k++ {
			mid := ca.Lerp(cb, (float32(k)+0.5)/float32(pieces))
			w.accumulate(dixelKey{voxel: m.header.VoxelAt(mid), bin: bin}, piece)
		}
	}
	w.builder.Add(0, outside)

	diag := m.scale.Diagonal()
	for i, key := range w.keys {
		var fixel uint32
		if m.header.Contains(key.voxel) {
			fixel = m.lookup.Dir2Fixel(key.voxel, key.bin)
		}
		// Feed in chunks no longer than the voxel diagonal so a single record
		// never saturates.
		remaining := w.length[i]
		for remaining > diag {
			w.builder.Add(fixel, diag)
			remaining -= diag
		}
		w.builder.Add(fixel, remaining)
	}
	return w.builder.Build()
}

func (w *worker) accumulate(key dixelKey, length float32) {
	if i, ok := w.index[key]; ok {
		w.length[i] += length
		return
	}
	w.index[key] = len(w.keys)
	w.keys = append(w.keys, key)
	w.length = append(w.length, length)
}
