package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidHeader is returned when image geometry cannot describe a 3D lattice.
var ErrInvalidHeader = errors.New("invalid image header")

// Header describes the voxel grid of a 3D image.
type Header struct {
	// Dims is the number of voxels along each axis.
	Dims [3]int
	// VoxelSize is the voxel edge length along each axis in millimetres.
	VoxelSize [3]float32
	// Origin is the scanner position of the centre of voxel (0,0,0).
	Origin Vec3
}

// Validate checks that the header describes a non-empty grid with positive,
// finite voxel sizes.
func (h Header) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if h.Dims[axis] <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrInvalidHeader, axis, h.Dims[axis])
		}
		vs := float64(h.VoxelSize[axis])
		if !(vs > 0) || math.IsInf(vs, 0) {
			return fmt.Errorf("%w: voxel size %d is %v", ErrInvalidHeader, axis, h.VoxelSize[axis])
		}
	}
	return nil
}

// NumVoxels returns the total number of lattice cells.
func (h Header) NumVoxels() int {
	return h.Dims[0] * h.Dims[1] * h.Dims[2]
}

// Contains reports whether p lies inside the grid.
func (h Header) Contains(p Point3d) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < 0 || int(p[axis]) >= h.Dims[axis] {
			return false
		}
	}
	return true
}

// Index returns the linear offset of p, x varying fastest.
// p must be inside the grid.
func (h Header) Index(p Point3d) int {
	return int(p[0]) + h.Dims[0]*(int(p[1])+h.Dims[1]*int(p[2]))
}

// Point is the inverse of Index.
func (h Header) Point(i int) Point3d {
	x := i % h.Dims[0]
	i /= h.Dims[0]
	y := i % h.Dims[1]
	z := i / h.Dims[1]
	return Point3d{int32(x), int32(y), int32(z)}
}

// Diagonal returns the length of the voxel diagonal, the longest straight
// segment that fits inside a single voxel.
func (h Header) Diagonal() float32 {
	return Vec3(h.VoxelSize).Norm()
}

// MinVoxelSize returns the smallest voxel edge length.
func (h Header) MinVoxelSize() float32 {
	return min(h.VoxelSize[0], h.VoxelSize[1], h.VoxelSize[2])
}

// VoxelAt returns the voxel whose centre is nearest to the scanner position pos.
// The result may lie outside the grid; check it with Contains.
func (h Header) VoxelAt(pos Vec3) Point3d {
	var p Point3d
	for axis := 0; axis < 3; axis++ {
		f := float64((pos[axis] - h.Origin[axis]) / h.VoxelSize[axis])
		p[axis] = int32(math.Floor(f + 0.5))
	}
	return p
}

// Centre returns the scanner position of the centre of voxel p.
func (h Header) Centre(p Point3d) Vec3 {
	var v Vec3
	for axis := 0; axis < 3; axis++ {
		v[axis] = h.Origin[axis] + float32(p[axis])*h.VoxelSize[axis]
	}
	return v
}

// Clip intersects the segment from a to b with the extent of the grid, the
// union of all voxels as VoxelAt assigns them, and returns the endpoints of the
// inside part in the order a to b. ok is false when the segment misses the
// grid. The returned points never leave the extent, so their distance is
// bounded by the extent's diagonal even when a or b lie very far away.
func (h Header) Clip(a, b Vec3) (ca, cb Vec3, ok bool) {
	var minB, maxB [3]float64
	lo, hi := 0.0, 1.0
	for axis := 0; axis < 3; axis++ {
		vs := float64(h.VoxelSize[axis])
		minB[axis] = float64(h.Origin[axis]) - vs/2
		maxB[axis] = minB[axis] + float64(h.Dims[axis])*vs
		p := float64(a[axis])
		d := float64(b[axis]) - p
		if d == 0 {
			if !(p >= minB[axis] && p < maxB[axis]) {
				return Vec3{}, Vec3{}, false
			}
			continue
		}
		ta, tb := (minB[axis]-p)/d, (maxB[axis]-p)/d
		if ta > tb {
			ta, tb = tb, ta
		}
		lo, hi = max(lo, ta), min(hi, tb)
		if !(lo < hi) {
			return Vec3{}, Vec3{}, false
		}
	}
	for axis := 0; axis < 3; axis++ {
		p := float64(a[axis])
		d := float64(b[axis]) - p
		ca[axis] = float32(min(max(p+lo*d, minB[axis]), maxB[axis]))
		cb[axis] = float32(min(max(p+hi*d, minB[axis]), maxB[axis]))
	}
	return ca, cb, true
}
