// Package conv provides checked integer narrowing.
//
// Voxel counts, fixel counts and list lengths are held as int in memory but
// addressed as uint32 by the occupancy bitmap and the wire format. These helpers
// reject values that would silently wrap instead of truncating them.
package conv
