package fixel

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fixeltrack/geom"
)

var (
	// ErrOutOfBounds is returned when a segmentation refers to a voxel outside the grid.
	ErrOutOfBounds = errors.New("voxel outside image bounds")

	// ErrDuplicateAssignment is carried by the panic raised when a voxel is assigned twice.
	ErrDuplicateAssignment = errors.New("voxel assigned more than once")

	// ErrInvalidLookup is carried by the panic raised when a direction lookup is
	// made on an entry without a lookup table.
	ErrInvalidLookup = errors.New("direction lookup on entry without lookup table")

	// ErrInvalidLookupTable is returned when a lookup table refers to a lobe that does not exist.
	ErrInvalidLookupTable = errors.New("lookup table value exceeds lobe count")

	// ErrTooManyLobes is returned when a voxel has more lobes than a lookup table can address.
	ErrTooManyLobes = errors.New("too many lobes in voxel")

	// ErrCapacityExceeded is returned when the global fixel array would outgrow
	// the index range of a packed contribution record.
	ErrCapacityExceeded = errors.New("fixel capacity exceeded")

	// ErrFrozen is returned when assigning into a map that has been frozen.
	ErrFrozen = errors.New("fixel map is frozen")
)

// BoundsError reports a segmentation position outside the image grid.
type BoundsError struct {
	Voxel geom.Point3d
	Dims  [3]int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("voxel %v outside image bounds %v", e.Voxel, e.Dims)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// DuplicateAssignmentError reports a voxel that received a second segmentation.
// It is raised as a panic: each voxel must be assigned exactly once.
type DuplicateAssignmentError struct {
	Voxel geom.Point3d
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("voxel %v assigned more than once", e.Voxel)
}

func (e *DuplicateAssignmentError) Unwrap() error { return ErrDuplicateAssignment }
