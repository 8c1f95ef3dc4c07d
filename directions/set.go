// Package directions provides the discrete direction set that defines the bins
// of a direction lookup table.
//
// A direction and its antipode fall into the same bin: fibre orientations are
// axial, so a streamline traversing a voxel in either sense hits the same fixel.
package directions

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/fixeltrack/geom"
)

// ErrInvalidDirection is returned for empty sets or zero-length directions.
var ErrInvalidDirection = errors.New("invalid direction")

// Set is an immutable list of unit directions. It is safe for concurrent use.
type Set struct {
	dirs []geom.Vec3
	// nil for small sets
	grid *grid
}

func newSet(unit []geom.Vec3) *Set {
	s := &Set{dirs: unit}
	if len(unit) >= gridMinSize {
		s.grid = newGrid(unit)
	}
	return s
}

// NewSet normalises dirs into a Set.
func NewSet(dirs []geom.Vec3) (*Set, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: empty direction set", ErrInvalidDirection)
	}
	unit := make([]geom.Vec3, len(dirs))
	for i, d := range dirs {
		n := d.Norm()
		if !(n > 0) || math.IsInf(float64(n), 0) {
			return nil, fmt.Errorf("%w: direction %d is %v", ErrInvalidDirection, i, d)
		}
		unit[i] = d.Scale(1 / n)
	}
	return newSet(unit), nil
}

// Fibonacci returns n directions spread evenly over the upper hemisphere
// using a golden-angle spiral.
func Fibonacci(n int) *Set {
	if n <= 0 {
		n = 1
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	dirs := make([]geom.Vec3, n)
	for i := range dirs {
		z := 1 - (float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		dirs[i] = geom.Vec3{float32(r * math.Cos(phi)), float32(r * math.Sin(phi)), float32(z)}
	}
	return newSet(dirs)
}

// Size returns the number of bins.
func (s *Set) Size() int { return len(s.dirs) }

// Dir returns the unit direction of bin i.
func (s *Set) Dir(i int) geom.Vec3 { return s.dirs[i] }

// Select returns the bin whose direction is closest to d, treating d and -d
// as the same orientation. d need not be normalised. Ties go to the lowest bin.
func (s *Set) Select(d geom.Vec3) int {
	if s.grid != nil {
		if c, ok := s.grid.cell(d); ok {
			return s.selectFrom(d, s.grid.candidates(c))
		}
	}
	return s.selectLinear(d)
}

func (s *Set) selectFrom(d geom.Vec3, bins []int32) int {
	best := 0
	var bestDot float32 = -1
	for _, i := range bins {
		dot := s.dirs[i].Dot(d)
		if dot < 0 {
			dot = -dot
		}
		if dot > bestDot {
			best, bestDot = int(i), dot
		}
	}
	return best
}

func (s *Set) selectLinear(d geom.Vec3) int {
	best := 0
	var bestDot float32 = -1
	for i, u := range s.dirs {
		dot := u.Dot(d)
		if dot < 0 {
			dot = -dot
		}
		if dot > bestDot {
			best, bestDot = i, dot
		}
	}
	return best
}
