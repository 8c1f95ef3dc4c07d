package fixel

import "fmt"

// Entry describes the fixels of one voxel: a run of Count fixels starting at
// First in the global fixel array, plus an optional direction lookup table.
type Entry struct {
	first uint32
	count uint32
	lut   []uint8
}

// First returns the absolute index of the voxel's first fixel.
func (e Entry) First() uint32 { return e.first }

// Count returns the number of fixels in the voxel.
func (e Entry) Count() uint32 { return e.count }

// Empty reports whether the entry holds no fixels.
func (e Entry) Empty() bool { return e.count == 0 }

// HasLookup reports whether the entry can answer direction lookups.
func (e Entry) HasLookup() bool { return e.lut != nil }

// Dir2Fixel returns the absolute index of the fixel that direction bin belongs
// to, or 0 when the bin matches none of the voxel's fixels. It panics if the
// entry has no lookup table or bin is outside the table.
func (e Entry) Dir2Fixel(bin int) uint32 {
	if e.lut == nil {
		panic(ErrInvalidLookup)
	}
	if bin < 0 || bin >= len(e.lut) {
		panic(fmt.Errorf("%w: bin %d outside table of %d bins", ErrInvalidLookup, bin, len(e.lut)))
	}
	offset := uint32(e.lut[bin])
	if offset == e.count {
		return 0
	}
	return e.first + offset
}
