// Package fixel implements the sparse voxel-to-fixel index.
//
// A Map owns a global array of fixels and, for every voxel of the image grid,
// an optional Entry describing the contiguous run of fixels that belong to that
// voxel. Fixels are created from FOD-lobe segmentations, one fixel per lobe, in
// the order the voxels are assigned.
//
// Index 0 of the global array is a permanent invalid fixel. It is present on
// an empty map, it is never handed out to a voxel, and it doubles as the
// "no fixel" result of direction lookups.
//
// # Lifecycle
//
// A Map is built by a single writer, either by calling Assign directly or
// through Build, which runs segmentation in parallel and funnels the results
// into one writer goroutine. Once built the map is frozen and may be read by
// any number of goroutines without synchronisation.
//
//	m, _ := fixel.New(header, func(l fixel.Lobe) MyFixel { return MyFixel{Amp: l.Integral} })
//	stats, err := fixel.Build(ctx, m, segmenter, fixel.WithWorkers(8))
//
//	for idx, f := range m.FixelsAt(voxel) {
//	    _ = idx // absolute fixel index
//	    _ = f   // *MyFixel
//	}
package fixel
