package fixeltrack

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fixeltrack/codec"
	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
	"github.com/hupe1980/fixeltrack/mapping"
)

var (
	// ErrIndexNotBuilt is returned when streamlines are mapped before BuildIndex.
	ErrIndexNotBuilt = errors.New("fixel index not built")

	// ErrIndexBuilt is returned when BuildIndex is called twice.
	ErrIndexBuilt = errors.New("fixel index already built")

	// ErrScaleMismatch is returned when serialized contributions were
	// quantized for a different voxel geometry.
	ErrScaleMismatch = errors.New("contribution scale mismatch")

	// ErrInvalidHeader is returned for unusable image geometry.
	ErrInvalidHeader = geom.ErrInvalidHeader

	// ErrInvalidVoxelSize is returned when no quantization scale can be derived.
	ErrInvalidVoxelSize = contribution.ErrInvalidVoxelSize

	// ErrTooManyLobes is returned when a voxel segmentation exceeds fixel.MaxLobes.
	ErrTooManyLobes = fixel.ErrTooManyLobes

	// ErrCapacityExceeded is returned when the fixel count would exceed the
	// 24-bit index space of a contribution record.
	ErrCapacityExceeded = fixel.ErrCapacityExceeded

	// ErrMemoryLimitExceeded is returned when contribution lists outgrow the memory limit.
	ErrMemoryLimitExceeded = mapping.ErrMemoryLimitExceeded

	// ErrIndexMismatch is returned when serialized contributions reference
	// fixels the pipeline's index does not hold.
	ErrIndexMismatch = errors.New("contribution index mismatch")

	// ErrCorrupt is returned for unreadable contribution streams.
	ErrCorrupt = codec.ErrCorrupt
)

// ErrInvalidLookupTable indicates a segmentation whose direction lookup table
// does not cover the pipeline's direction set.
//
// It unwraps to fixel.ErrInvalidLookupTable.
type ErrInvalidLookupTable struct {
	Voxel geom.Point3d
	Bins  int
	Want  int
}

func (e *ErrInvalidLookupTable) Error() string {
	return fmt.Sprintf("voxel %v: lookup table has %d bins, want %d", e.Voxel, e.Bins, e.Want)
}

func (e *ErrInvalidLookupTable) Unwrap() error { return fixel.ErrInvalidLookupTable }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Build wraps segmenter failures with the voxel; the typed error already
	// carries it.
	var lut *ErrInvalidLookupTable
	if errors.As(err, &lut) {
		return lut
	}
	if errors.Is(err, mapping.ErrIndexOutOfRange) || errors.Is(err, mapping.ErrDuplicateIndex) {
		return fmt.Errorf("streamline source: %w", err)
	}

	return err
}
