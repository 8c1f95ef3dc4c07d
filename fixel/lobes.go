package fixel

import "github.com/hupe1980/fixeltrack/geom"

// Lobe is one segmented peak of a voxel's fibre orientation distribution.
type Lobe struct {
	// Integral is the FOD integral over the lobe (apparent fibre density).
	Integral float32
	// PeakValue is the FOD amplitude at the lobe peak.
	PeakValue float32
	// PeakDir is the direction of the lobe peak.
	PeakDir geom.Vec3
	// MeanDir is the amplitude-weighted mean direction of the lobe.
	MeanDir geom.Vec3
}

// Lobes is the segmentation result for one voxel.
type Lobes struct {
	Voxel geom.Point3d
	Lobes []Lobe
	// LUT maps each direction bin to the local index of its lobe, or to
	// len(Lobes) when the bin belongs to no lobe. A nil LUT produces an entry
	// that cannot answer direction lookups.
	LUT []uint8
}

// Empty reports whether the segmentation found no lobes.
func (l Lobes) Empty() bool { return len(l.Lobes) == 0 }

// NewLUT returns a lookup table of n bins all set to the "no lobe" sentinel
// for a voxel with count lobes.
func NewLUT(n, count int) []uint8 {
	lut := make([]uint8, n)
	for i := range lut {
		lut[i] = uint8(count)
	}
	return lut
}
