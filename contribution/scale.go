package contribution

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVoxelSize is returned when voxel geometry cannot produce a positive,
// finite voxel diagonal.
var ErrInvalidVoxelSize = errors.New("invalid voxel size")

// Scale is the linear mapping between real-valued lengths and their 8-bit
// stored representation. It is immutable once built.
type Scale struct {
	diagonal    float32
	toStorage   float32
	fromStorage float32
	minLength   float32
}

// NewScale derives the quantization scale from the per-axis voxel size.
func NewScale(voxelSize [3]float32) (Scale, error) {
	var sum float64
	for axis, v := range voxelSize {
		if !(v > 0) || math.IsInf(float64(v), 0) {
			return Scale{}, fmt.Errorf("%w: axis %d is %v", ErrInvalidVoxelSize, axis, v)
		}
		sum += float64(v) * float64(v)
	}
	return ScaleFromDiagonal(float32(math.Sqrt(sum)))
}

// ScaleFromDiagonal builds the scale directly from the voxel diagonal length.
func ScaleFromDiagonal(diagonal float32) (Scale, error) {
	d := float64(diagonal)
	if !(d > 0) || math.IsInf(d, 0) {
		return Scale{}, fmt.Errorf("%w: diagonal is %v", ErrInvalidVoxelSize, diagonal)
	}
	toStorage := float32(255.0 / d)
	return Scale{
		diagonal:    diagonal,
		toStorage:   toStorage,
		fromStorage: float32(d / 255.0),
		minLength:   0.5 / toStorage,
	}, nil
}

// Valid reports whether s was built by NewScale or ScaleFromDiagonal.
func (s Scale) Valid() bool { return s.toStorage > 0 }

// Diagonal returns the voxel diagonal the scale was derived from.
func (s Scale) Diagonal() float32 { return s.diagonal }

// ToStorage returns the factor from millimetres to quantized units.
func (s Scale) ToStorage() float32 { return s.toStorage }

// FromStorage returns the factor from quantized units to millimetres.
func (s Scale) FromStorage() float32 { return s.fromStorage }

// MinLength is the smallest length that quantizes to a non-zero value.
func (s Scale) MinLength() float32 { return s.minLength }

// String implements fmt.Stringer.
func (s Scale) String() string {
	return fmt.Sprintf("Scale{diagonal=%g, toStorage=%g}", s.diagonal, s.toStorage)
}

// quantize maps a length to quantized units, rounding half away from zero.
// The result is not clamped.
func (s Scale) quantize(length float32) uint32 {
	if !s.Valid() {
		panic("contribution: use of uninitialised Scale")
	}
	q := math.Round(float64(s.toStorage) * float64(length))
	if q <= 0 {
		return 0
	}
	if q > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(q)
}
