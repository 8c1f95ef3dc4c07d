// Package contribution stores the relationship between one streamline and the
// fixels it traverses in a memory footprint proportional to the number of
// streamline/fixel contacts.
//
// # Packed records
//
// Each contact is a Record: a single uint32 holding the fixel index in the low
// 24 bits and the traversed length, quantized to 8 bits, in the high 8 bits.
//
//	 31        24 23                                 0
//	┌────────────┬────────────────────────────────────┐
//	│ length (q) │            fixel index             │
//	└────────────┴────────────────────────────────────┘
//
// The quantization is linear and shared by every record of a run. It is held in
// an immutable Scale derived once from the voxel diagonal D:
//
//	toStorage   = 255 / D
//	fromStorage = D / 255
//	minLength   = 0.5 / toStorage
//
// A Scale is passed explicitly to every call that encodes or decodes a length.
// The zero Scale is not usable; building a record with it panics.
//
// # Lists
//
// A List is the frozen, exact-length set of records of one streamline together
// with two unquantized totals. Lists are produced by a Builder, which merges
// repeated hits on the same fixel and splits a contact into a new record when a
// merge would overflow the 8-bit length. The same fixel index may therefore
// appear more than once in a List.
//
//	b := contribution.NewBuilder(scale)
//	b.Add(fixelIndex, 0.8)
//	b.Add(fixelIndex, 0.6) // merged into the first record
//	list := b.Build()
package contribution
