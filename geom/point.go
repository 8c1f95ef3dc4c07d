package geom

import (
	"fmt"
	"math"
)

// Point3d is a voxel coordinate on the image lattice.
type Point3d [3]int32

// String implements fmt.Stringer.
func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Vec3 is a position or direction in scanner space (millimetres).
type Vec3 [3]float32

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the inner product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length.
// The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Lerp returns the point a fraction t of the way from v to o.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}
