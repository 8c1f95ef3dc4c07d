package fixeltrack_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fixeltrack"
	"github.com/hupe1980/fixeltrack/codec"
	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/directions"
	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/mapping"
)

// Three 2mm voxels along x. Voxel 0 holds an x-aligned fixel, voxel 1 an
// x-aligned and a y-aligned fixel, voxel 2 nothing.
var testHeader = geom.Header{Dims: [3]int{3, 1, 1}, VoxelSize: [3]float32{2, 2, 2}}

func axes(t *testing.T) *directions.Set {
	t.Helper()
	dirs, err := directions.NewSet([]geom.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	require.NoError(t, err)
	return dirs
}

func testSegmenter() fixel.Segmenter {
	return fixel.SegmenterFunc(func(_ context.Context, p geom.Point3d) (fixel.Lobes, error) {
		switch p {
		case geom.Point3d{0, 0, 0}:
			return fixel.Lobes{
				Voxel: p,
				Lobes: []fixel.Lobe{{Integral: 1, MeanDir: geom.Vec3{1, 0, 0}}},
				LUT:   []uint8{0, 1, 1},
			}, nil
		case geom.Point3d{1, 0, 0}:
			return fixel.Lobes{
				Voxel: p,
				Lobes: []fixel.Lobe{
					{Integral: 2, MeanDir: geom.Vec3{1, 0, 0}},
					{Integral: 0.5, MeanDir: geom.Vec3{0, 1, 0}},
				},
				LUT: []uint8{0, 1, 2},
			}, nil
		default:
			return fixel.Lobes{}, nil
		}
	})
}

func newPipeline(t *testing.T, opts ...fixeltrack.Option) *fixeltrack.Pipeline {
	t.Helper()
	opts = append([]fixeltrack.Option{fixeltrack.WithDirections(axes(t)), fixeltrack.WithWorkers(2)}, opts...)
	p, err := fixeltrack.New(testHeader, opts...)
	require.NoError(t, err)
	return p
}

func fixelsOf(l contribution.List) []uint32 {
	var out []uint32
	for r := range l.All() {
		out = append(out, r.FixelIndex())
	}
	return out
}

func TestPipeline_EndToEnd(t *testing.T) {
	metrics := &fixeltrack.BasicMetricsCollector{}
	p := newPipeline(t, fixeltrack.WithMetricsCollector(metrics))

	stats, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Voxels)
	assert.Equal(t, 2, stats.Occupied)
	assert.Equal(t, 3, stats.Fixels)
	assert.True(t, p.Index().Frozen())

	tracks := [][]geom.Vec3{
		{{-1, 0, 0}, {5, 0, 0}},     // through fixels 1 and 2, then the empty voxel
		{{2, -0.9, 0}, {2, 0.9, 0}}, // y-aligned fixel 3
		{{0, 10, 0}, {4, 10, 0}},    // outside the grid
	}
	lists, mstats, err := p.MapStreamlines(t.Context(), mapping.FromSlice(tracks), len(tracks))
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, int64(3), mstats.Streamlines)
	assert.Equal(t, int64(3), mstats.Records)

	assert.Equal(t, []uint32{1, 2}, fixelsOf(lists[0]))
	assert.InDelta(t, 4.0, lists[0].TotalContribution(), 1e-5)
	assert.InDelta(t, 6.0, lists[0].TotalLength(), 1e-5)
	assert.Equal(t, []uint32{3}, fixelsOf(lists[1]))
	assert.True(t, lists[2].Empty())
	assert.InDelta(t, 4.0, lists[2].TotalLength(), 1e-5)

	assert.Equal(t, mstats.Bytes, p.MemoryUsage())

	p.Accumulate(lists...)
	model := p.Model()
	tol := float64(p.Scale().Diagonal()) / 255
	assert.InDelta(t, 2.0, model.Index().At(1).TD, tol)
	assert.InDelta(t, 2.0, model.Index().At(2).TD, tol)
	assert.InDelta(t, 1.8, model.Index().At(3).TD, tol)
	assert.InDelta(t, 3.5, model.FODSum(), 1e-6)
	assert.Greater(t, model.Mu(), 0.0)
	assert.True(t, model.Untracked().IsEmpty())

	var buf bytes.Buffer
	require.NoError(t, p.WriteContributions(t.Context(), &buf, lists))
	decoded, err := p.ReadContributions(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, len(lists))
	for i := range lists {
		assert.Equal(t, fixelsOf(lists[i]), fixelsOf(decoded[i]))
		for j := range lists[i].Len() {
			assert.Equal(t, lists[i].At(j), decoded[i].At(j))
		}
	}

	p.Release(lists)
	assert.Zero(t, p.MemoryUsage())

	s := metrics.GetStats()
	assert.Equal(t, int64(1), s.BuildCount)
	assert.Equal(t, int64(3), s.Fixels)
	assert.Equal(t, int64(1), s.MappingCount)
	assert.Equal(t, int64(3), s.Streamlines)
	assert.Equal(t, int64(1), s.EncodeCount)
	assert.Positive(t, s.EncodedBytes)
}

func TestPipeline_Map(t *testing.T) {
	p := newPipeline(t)

	_, err := p.Map([]geom.Vec3{{-1, 0, 0}, {5, 0, 0}})
	require.ErrorIs(t, err, fixeltrack.ErrIndexNotBuilt)
	_, _, err = p.MapStreamlines(t.Context(), mapping.FromSlice(nil), 0)
	require.ErrorIs(t, err, fixeltrack.ErrIndexNotBuilt)
	assert.Zero(t, p.MemoryUsage())

	_, err = p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	l, err := p.Map([]geom.Vec3{{5, 0, 0}, {-1, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 1}, fixelsOf(l))
}

func TestPipeline_BuildOnce(t *testing.T) {
	p := newPipeline(t)
	_, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	_, err = p.BuildIndex(t.Context(), testSegmenter())
	assert.ErrorIs(t, err, fixeltrack.ErrIndexBuilt)
}

func TestPipeline_BuildErrors(t *testing.T) {
	t.Run("LookupTableSize", func(t *testing.T) {
		p := newPipeline(t)
		seg := fixel.SegmenterFunc(func(_ context.Context, v geom.Point3d) (fixel.Lobes, error) {
			return fixel.Lobes{Voxel: v, Lobes: make([]fixel.Lobe, 1), LUT: []uint8{0}}, nil
		})

		_, err := p.BuildIndex(t.Context(), seg)
		require.Error(t, err)
		assert.ErrorIs(t, err, fixel.ErrInvalidLookupTable)

		var lut *fixeltrack.ErrInvalidLookupTable
		require.ErrorAs(t, err, &lut)
		assert.Equal(t, 1, lut.Bins)
		assert.Equal(t, 3, lut.Want)
	})

	t.Run("SegmenterFailure", func(t *testing.T) {
		metrics := &fixeltrack.BasicMetricsCollector{}
		p := newPipeline(t, fixeltrack.WithMetricsCollector(metrics))
		boom := errors.New("boom")
		seg := fixel.SegmenterFunc(func(context.Context, geom.Point3d) (fixel.Lobes, error) {
			return fixel.Lobes{}, boom
		})

		_, err := p.BuildIndex(t.Context(), seg)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), metrics.GetStats().BuildErrors)

		_, err = p.BuildIndex(t.Context(), testSegmenter())
		assert.ErrorIs(t, err, fixeltrack.ErrIndexBuilt)
	})

	t.Run("Mask", func(t *testing.T) {
		var calls atomic.Int32
		p := newPipeline(t, fixeltrack.WithMask(func(v geom.Point3d) bool { return v[0] == 1 }))
		inner := testSegmenter()
		seg := fixel.SegmenterFunc(func(ctx context.Context, v geom.Point3d) (fixel.Lobes, error) {
			calls.Add(1)
			return inner.Segment(ctx, v)
		})

		stats, err := p.BuildIndex(t.Context(), seg)
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, stats.Occupied)
		assert.Equal(t, 2, stats.Fixels)
	})
}

func TestPipeline_MapStreamlinesErrors(t *testing.T) {
	p := newPipeline(t)
	_, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	src := func(yield func(mapping.Streamline) bool) {
		yield(mapping.Streamline{Index: 5})
	}
	_, _, err = p.MapStreamlines(t.Context(), src, 2)
	assert.ErrorIs(t, err, mapping.ErrIndexOutOfRange)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err = p.MapStreamlines(ctx, mapping.FromSlice(make([][]geom.Vec3, 100)), 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.MemoryUsage())
}

func TestPipeline_MemoryLimit(t *testing.T) {
	p := newPipeline(t, fixeltrack.WithMemoryLimit(1))
	_, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	tracks := [][]geom.Vec3{{{-1, 0, 0}, {5, 0, 0}}}
	_, _, err = p.MapStreamlines(t.Context(), mapping.FromSlice(tracks), 1)
	assert.ErrorIs(t, err, fixeltrack.ErrMemoryLimitExceeded)
	assert.Zero(t, p.MemoryUsage())
}

func TestPipeline_ReadContributions(t *testing.T) {
	p := newPipeline(t)

	other, err := contribution.ScaleFromDiagonal(1)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, other, nil, codec.Options{}))

	_, err = p.ReadContributions(&buf)
	assert.ErrorIs(t, err, fixeltrack.ErrScaleMismatch)

	_, err = p.ReadContributions(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, fixeltrack.ErrCorrupt)
}

func TestPipeline_ReadContributionsIndexMismatch(t *testing.T) {
	p := newPipeline(t)
	_, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	encode := func(fixels ...uint32) *bytes.Buffer {
		records := make([]contribution.Record, len(fixels))
		for i, f := range fixels {
			records[i] = contribution.NewRecord(p.Scale(), f, 1)
		}
		l := contribution.NewList(records, float32(len(fixels)), float32(len(fixels)))
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, p.Scale(), []contribution.List{l}, codec.Options{}))
		return &buf
	}

	// The index holds fixels 1..3; the quantized length is well within the diagonal.
	for _, bad := range [][]uint32{{500}, {1, 4}, {0}} {
		_, err := p.ReadContributions(encode(bad...))
		assert.ErrorIs(t, err, fixeltrack.ErrIndexMismatch, "fixels %v", bad)
	}

	lists, err := p.ReadContributions(encode(1, 3))
	require.NoError(t, err)
	assert.NotPanics(t, func() { p.Accumulate(lists...) })
	assert.Positive(t, p.Model().Index().At(3).TD)
}

func TestPipeline_ReleaseUncharged(t *testing.T) {
	p := newPipeline(t, fixeltrack.WithMemoryLimit(1<<20))
	_, err := p.BuildIndex(t.Context(), testSegmenter())
	require.NoError(t, err)

	track := []geom.Vec3{{-1, 0, 0}, {5, 0, 0}}

	t.Run("map result", func(t *testing.T) {
		l, err := p.Map(track)
		require.NoError(t, err)
		assert.NotPanics(t, func() { p.Release([]contribution.List{l}) })
		assert.Zero(t, p.MemoryUsage())
	})

	t.Run("double release", func(t *testing.T) {
		lists, stats, err := p.MapStreamlines(t.Context(), mapping.FromSlice([][]geom.Vec3{track}), 1)
		require.NoError(t, err)
		assert.Equal(t, stats.Bytes, p.MemoryUsage())
		assert.GreaterOrEqual(t, stats.PeakBytes, stats.Bytes)

		assert.NotPanics(t, func() {
			p.Release(lists)
			p.Release(lists)
		})
		assert.Zero(t, p.MemoryUsage())
	})

	t.Run("decoded lists", func(t *testing.T) {
		lists, _, err := p.MapStreamlines(t.Context(), mapping.FromSlice([][]geom.Vec3{track}), 1)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, p.WriteContributions(t.Context(), &buf, lists))
		p.Release(lists)

		decoded, err := p.ReadContributions(&buf)
		require.NoError(t, err)
		assert.NotPanics(t, func() { p.Release(decoded) })
		assert.Zero(t, p.MemoryUsage())
	})

	// The whole budget is still usable.
	lists, _, err := p.MapStreamlines(t.Context(), mapping.FromSlice([][]geom.Vec3{track}), 1)
	require.NoError(t, err)
	assert.Positive(t, p.MemoryUsage())
	p.Release(lists)
	assert.Zero(t, p.MemoryUsage())
}

func TestNew_Validation(t *testing.T) {
	_, err := fixeltrack.New(geom.Header{Dims: [3]int{0, 1, 1}, VoxelSize: [3]float32{1, 1, 1}})
	assert.ErrorIs(t, err, fixeltrack.ErrInvalidHeader)

	_, err = fixeltrack.New(testHeader, fixeltrack.WithCompression(codec.Compression(9)))
	assert.ErrorIs(t, err, codec.ErrUnsupported)

	p, err := fixeltrack.New(testHeader)
	require.NoError(t, err)
	assert.Equal(t, fixeltrack.DefaultDirections, p.Directions().Size())
	assert.InDelta(t, 3.4641, p.Scale().Diagonal(), 1e-4)
}
