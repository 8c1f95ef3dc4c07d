package fixel

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/internal/conv"
)

// MaxLobes is the largest number of lobes a single voxel may hold.
const MaxLobes = 255

// Map is the voxel-to-fixel index. F is the application's fixel payload; the
// map manages its storage but never inspects it.
type Map[F any] struct {
	header   geom.Header
	newFixel func(Lobe) F

	// slots holds, per voxel, 0 for "no entry" or the 1-based position of the
	// voxel's entry in entries.
	slots    []uint32
	entries  []Entry
	fixels   []F
	occupied *roaring.Bitmap
	frozen   bool
}

// New allocates an empty map over the grid described by h. newFixel builds the
// payload of each fixel from its lobe; if nil, fixels hold the zero value of F.
func New[F any](h geom.Header, newFixel func(Lobe) F) (*Map[F], error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if _, err := conv.IntToUint32(h.NumVoxels()); err != nil {
		return nil, fmt.Errorf("fixel map: grid too large: %w", err)
	}
	if newFixel == nil {
		newFixel = func(Lobe) F {
			var zero F
			return zero
		}
	}

	var invalid F
	return &Map[F]{
		header:   h,
		newFixel: newFixel,
		slots:    make([]uint32, h.NumVoxels()),
		fixels:   []F{invalid},
		occupied: roaring.New(),
	}, nil
}

// Header returns the image geometry of the map.
func (m *Map[F]) Header() geom.Header { return m.header }

// Len returns the length of the global fixel array, including the invalid
// fixel at index 0.
func (m *Map[F]) Len() int { return len(m.fixels) }

// NumVoxels returns the number of voxels holding an entry.
func (m *Map[F]) NumVoxels() int { return int(m.occupied.GetCardinality()) }

// Assign stores the segmentation of one voxel.
//
// An empty segmentation is accepted and creates no entry. A position outside
// the grid returns a *BoundsError and leaves the map unchanged. Assigning a
// voxel that already holds an entry is a programming error and panics with a
// *DuplicateAssignmentError.
//
// Fixel pointers obtained before Assign may be invalidated by it.
func (m *Map[F]) Assign(in Lobes) error {
	if in.Empty() {
		return nil
	}
	if m.frozen {
		return ErrFrozen
	}
	if !m.header.Contains(in.Voxel) {
		return &BoundsError{Voxel: in.Voxel, Dims: m.header.Dims}
	}

	vi := m.header.Index(in.Voxel)
	if m.slots[vi] != 0 {
		panic(&DuplicateAssignmentError{Voxel: in.Voxel})
	}

	count := len(in.Lobes)
	if count > MaxLobes {
		return fmt.Errorf("%w: voxel %v has %d lobes", ErrTooManyLobes, in.Voxel, count)
	}
	for bin, v := range in.LUT {
		if int(v) > count {
			return fmt.Errorf("%w: voxel %v bin %d maps to lobe %d of %d", ErrInvalidLookupTable, in.Voxel, bin, v, count)
		}
	}
	first := len(m.fixels)
	if first+count-1 > contribution.MaxFixelIndex {
		return fmt.Errorf("%w: %d fixels", ErrCapacityExceeded, first+count)
	}

	e := Entry{
		first: uint32(first),
		count: uint32(count),
	}
	if in.LUT != nil {
		e.lut = make([]uint8, len(in.LUT))
		copy(e.lut, in.LUT)
	}

	for _, l := range in.Lobes {
		m.fixels = append(m.fixels, m.newFixel(l))
	}
	m.entries = append(m.entries, e)
	m.slots[vi] = uint32(len(m.entries))
	m.occupied.Add(uint32(vi))
	return nil
}

// Freeze marks the end of the build phase. Subsequent Assign calls fail with
// ErrFrozen.
func (m *Map[F]) Freeze() { m.frozen = true }

// Frozen reports whether Freeze has been called.
func (m *Map[F]) Frozen() bool { return m.frozen }

// Entry returns the entry of voxel p, if any.
func (m *Map[F]) Entry(p geom.Point3d) (Entry, bool) {
	if !m.header.Contains(p) {
		return Entry{}, false
	}
	slot := m.slots[m.header.Index(p)]
	if slot == 0 {
		return Entry{}, false
	}
	return m.entries[slot-1], true
}

// Fixels yields the absolute index and payload of every fixel of entry e.
// The zero Entry yields nothing. The sequence can be ranged over repeatedly.
func (m *Map[F]) Fixels(e Entry) iter.Seq2[uint32, *F] {
	return func(yield func(uint32, *F) bool) {
		for i := e.first; i < e.first+e.count; i++ {
			if !yield(i, &m.fixels[i]) {
				return
			}
		}
	}
}

// FixelsAt yields the fixels of voxel p; nothing if p has no entry.
func (m *Map[F]) FixelsAt(p geom.Point3d) iter.Seq2[uint32, *F] {
	e, _ := m.Entry(p)
	return m.Fixels(e)
}

// At returns the fixel at absolute index i. It panics if i is out of range.
func (m *Map[F]) At(i uint32) *F {
	if int(i) >= len(m.fixels) {
		panic(fmt.Sprintf("fixel: index %d out of range [0,%d)", i, len(m.fixels)))
	}
	return &m.fixels[i]
}

// All yields every valid fixel (index 0 excluded) in index order.
func (m *Map[F]) All() iter.Seq2[uint32, *F] {
	return func(yield func(uint32, *F) bool) {
		for i := 1; i < len(m.fixels); i++ {
			if !yield(uint32(i), &m.fixels[i]) {
				return
			}
		}
	}
}

// Voxels yields every voxel holding an entry, in lattice index order.
func (m *Map[F]) Voxels() iter.Seq2[geom.Point3d, Entry] {
	return func(yield func(geom.Point3d, Entry) bool) {
		it := m.occupied.Iterator()
		for it.HasNext() {
			vi := it.Next()
			if !yield(m.header.Point(int(vi)), m.entries[m.slots[vi]-1]) {
				return
			}
		}
	}
}

// Dir2Fixel resolves direction bin in voxel p to an absolute fixel index.
// Voxels outside the grid or without an entry resolve to 0.
func (m *Map[F]) Dir2Fixel(p geom.Point3d, bin int) uint32 {
	e, ok := m.Entry(p)
	if !ok {
		return 0
	}
	return e.Dir2Fixel(bin)
}
