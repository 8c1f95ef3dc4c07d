package fixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fixeltrack/geom"
)

type testFixel struct {
	amp float32
}

func newTestFixel(l Lobe) testFixel { return testFixel{amp: l.Integral} }

func testHeader(x, y, z int) geom.Header {
	return geom.Header{Dims: [3]int{x, y, z}, VoxelSize: [3]float32{1, 1, 1}}
}

func lobes(p geom.Point3d, amps ...float32) Lobes {
	in := Lobes{Voxel: p, LUT: NewLUT(4, len(amps))}
	for i, a := range amps {
		in.Lobes = append(in.Lobes, Lobe{Integral: a})
		if i < len(in.LUT) {
			in.LUT[i] = uint8(i)
		}
	}
	return in
}

func collect[F any](m *Map[F], e Entry) []uint32 {
	var idx []uint32
	for i := range m.Fixels(e) {
		idx = append(idx, i)
	}
	return idx
}

func TestMap_New(t *testing.T) {
	m, err := New[testFixel](testHeader(2, 2, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, testFixel{}, *m.At(0))
	assert.Equal(t, 0, m.NumVoxels())

	_, err = New[testFixel](geom.Header{}, nil)
	assert.ErrorIs(t, err, geom.ErrInvalidHeader)
}

func TestMap_Scenario(t *testing.T) {
	m, err := New(testHeader(2, 1, 1), newTestFixel)
	require.NoError(t, err)

	a := geom.Point3d{0, 0, 0}
	b := geom.Point3d{1, 0, 0}

	inA := Lobes{
		Voxel: a,
		Lobes: []Lobe{{Integral: 1}, {Integral: 2}, {Integral: 3}},
		LUT:   []uint8{0, 1, 2, 3},
	}
	require.NoError(t, m.Assign(inA))
	assert.Equal(t, 4, m.Len())

	eA, ok := m.Entry(a)
	require.True(t, ok)
	assert.Equal(t, uint32(1), eA.First())
	assert.Equal(t, uint32(3), eA.Count())

	require.NoError(t, m.Assign(Lobes{Voxel: b}))
	assert.Equal(t, 4, m.Len())
	_, ok = m.Entry(b)
	assert.False(t, ok)
	assert.Empty(t, collect(m, Entry{}))

	var n int
	for range m.FixelsAt(b) {
		n++
	}
	assert.Zero(t, n)

	assert.Equal(t, uint32(0), eA.Dir2Fixel(3))
	assert.Equal(t, uint32(2), eA.Dir2Fixel(1))
	assert.Equal(t, uint32(2), m.Dir2Fixel(a, 1))
	assert.Equal(t, uint32(0), m.Dir2Fixel(b, 1))

	var amps []float32
	for _, f := range m.FixelsAt(a) {
		amps = append(amps, f.amp)
	}
	assert.Equal(t, []float32{1, 2, 3}, amps)
}

func TestMap_ContiguousRanges(t *testing.T) {
	h := testHeader(4, 3, 2)
	m, err := New(h, newTestFixel)
	require.NoError(t, err)

	counts := map[geom.Point3d]int{}
	for i := 0; i < h.NumVoxels(); i++ {
		p := h.Point(i)
		c := (i * 7) % 4
		amps := make([]float32, c)
		for j := range amps {
			amps[j] = float32(i*10 + j)
		}
		require.NoError(t, m.Assign(lobes(p, amps...)))
		counts[p] = c
	}

	total := 0
	for p, c := range counts {
		e, ok := m.Entry(p)
		if c == 0 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok)
		idx := collect(m, e)
		require.Len(t, idx, c)
		for k, i := range idx {
			assert.Equal(t, e.First()+uint32(k), i)
		}
		total += c

		// Restartable.
		assert.Equal(t, idx, collect(m, e))
	}
	assert.Equal(t, total+1, m.Len())
	assert.Equal(t, testFixel{}, *m.At(0))

	var visited int
	prev := -1
	for p, e := range m.Voxels() {
		assert.Greater(t, h.Index(p), prev)
		prev = h.Index(p)
		assert.Equal(t, uint32(counts[p]), e.Count())
		visited++
	}
	assert.Equal(t, m.NumVoxels(), visited)

	var all int
	for i := range m.All() {
		assert.NotZero(t, i)
		all++
	}
	assert.Equal(t, total, all)
}

func TestMap_AssignErrors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		m, err := New(testHeader(2, 2, 2), newTestFixel)
		require.NoError(t, err)

		err = m.Assign(lobes(geom.Point3d{2, 0, 0}, 1))
		var be *BoundsError
		require.ErrorAs(t, err, &be)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.Equal(t, geom.Point3d{2, 0, 0}, be.Voxel)
		assert.Equal(t, 1, m.Len())

		require.NoError(t, m.Assign(lobes(geom.Point3d{-1, 0, 0})), "empty segmentation is a no-op")
	})

	t.Run("Duplicate", func(t *testing.T) {
		m, err := New(testHeader(2, 2, 2), newTestFixel)
		require.NoError(t, err)

		p := geom.Point3d{1, 1, 1}
		require.NoError(t, m.Assign(lobes(p, 1)))

		defer func() {
			r := recover()
			require.NotNil(t, r)
			err, ok := r.(error)
			require.True(t, ok)
			assert.ErrorIs(t, err, ErrDuplicateAssignment)
			var de *DuplicateAssignmentError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, p, de.Voxel)
		}()
		_ = m.Assign(lobes(p, 2))
	})

	t.Run("InvalidLookupTable", func(t *testing.T) {
		m, err := New(testHeader(1, 1, 1), newTestFixel)
		require.NoError(t, err)

		in := lobes(geom.Point3d{}, 1, 2)
		in.LUT[0] = 3
		assert.ErrorIs(t, m.Assign(in), ErrInvalidLookupTable)
		assert.Equal(t, 1, m.Len())
		_, ok := m.Entry(geom.Point3d{})
		assert.False(t, ok)
	})

	t.Run("TooManyLobes", func(t *testing.T) {
		m, err := New(testHeader(1, 1, 1), newTestFixel)
		require.NoError(t, err)

		in := Lobes{Lobes: make([]Lobe, MaxLobes+1)}
		assert.ErrorIs(t, m.Assign(in), ErrTooManyLobes)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("Frozen", func(t *testing.T) {
		m, err := New(testHeader(1, 1, 1), newTestFixel)
		require.NoError(t, err)
		m.Freeze()
		assert.True(t, m.Frozen())
		assert.ErrorIs(t, m.Assign(lobes(geom.Point3d{}, 1)), ErrFrozen)
	})
}

func TestMap_LookupTableCopied(t *testing.T) {
	m, err := New(testHeader(1, 1, 1), newTestFixel)
	require.NoError(t, err)

	in := lobes(geom.Point3d{}, 1, 2)
	require.NoError(t, m.Assign(in))
	in.LUT[0] = 1

	e, ok := m.Entry(geom.Point3d{})
	require.True(t, ok)
	assert.Equal(t, uint32(1), e.Dir2Fixel(0))
}

func TestEntry_Dir2Fixel(t *testing.T) {
	m, err := New(testHeader(3, 1, 1), newTestFixel)
	require.NoError(t, err)

	require.NoError(t, m.Assign(lobes(geom.Point3d{0, 0, 0}, 1)))
	require.NoError(t, m.Assign(Lobes{
		Voxel: geom.Point3d{1, 0, 0},
		Lobes: []Lobe{{}, {}},
		LUT:   []uint8{1, 2, 0, 2, 1},
	}))
	require.NoError(t, m.Assign(Lobes{Voxel: geom.Point3d{2, 0, 0}, Lobes: []Lobe{{}}}))

	e, ok := m.Entry(geom.Point3d{1, 0, 0})
	require.True(t, ok)
	for bin, want := range []uint32{3, 0, 2, 0, 3} {
		got := e.Dir2Fixel(bin)
		assert.Equal(t, want, got, "bin %d", bin)
		assert.Less(t, int(got), m.Len())
	}

	assert.Panics(t, func() { e.Dir2Fixel(5) })

	noLUT, ok := m.Entry(geom.Point3d{2, 0, 0})
	require.True(t, ok)
	assert.False(t, noLUT.HasLookup())
	assert.PanicsWithValue(t, ErrInvalidLookup, func() { noLUT.Dir2Fixel(0) })
}

func TestMap_AtOutOfRangePanics(t *testing.T) {
	m, err := New[testFixel](testHeader(1, 1, 1), nil)
	require.NoError(t, err)
	assert.Panics(t, func() { m.At(1) })
}
