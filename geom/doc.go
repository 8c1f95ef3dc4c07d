// Package geom provides the image lattice and scanner-space primitives shared by
// the fixel index and the streamline mapper.
//
// Voxel positions are integer lattice coordinates (Point3d). Streamline samples
// are real-valued positions in millimetres (Vec3). A Header ties the two together
// through the image dimensions, the per-axis voxel size and the position of the
// centre of voxel (0,0,0).
//
//	h := geom.Header{Dims: [3]int{96, 96, 60}, VoxelSize: [3]float32{2, 2, 2}}
//	v := h.VoxelAt(geom.Vec3{10.2, 4.9, 31.0}) // nearest voxel centre
//	if h.Contains(v) {
//	    i := h.Index(v) // x varies fastest
//	}
package geom
