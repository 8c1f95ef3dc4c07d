// Package fixeltrack is the bookkeeping core of a fixel-based tractography
// filtering pipeline.
//
// A fixel is one fibre population inside one voxel. Fixeltrack maintains a
// sparse voxel-to-fixel index built from per-voxel FOD-lobe segmentations, and
// maps every streamline onto it as a compact contribution list: one 32-bit
// record per (streamline, fixel) contact, holding a 24-bit fixel index and an
// 8-bit quantized length. Memory therefore grows with the number of contacts,
// which is what makes filtering millions of streamlines feasible.
//
// # Quick Start
//
//	h := geom.Header{Dims: [3]int{96, 114, 96}, VoxelSize: [3]float32{2, 2, 2}}
//	p, _ := fixeltrack.New(h, fixeltrack.WithMemoryLimit(16<<30))
//
//	// Segment every voxel; the segmenter fills one LUT entry per direction of
//	// p.Directions().
//	stats, _ := p.BuildIndex(ctx, segmenter)
//
//	lists, _, _ := p.MapStreamlines(ctx, mapping.FromSlice(tracks), len(tracks))
//	p.Accumulate(lists...)
//	fmt.Println(p.Model().Mu(), p.Model().Cost())
//
// # Packages
//
//	geom          voxel lattice and image geometry
//	contribution  quantization scale, packed records, contribution lists
//	fixel         the fixel-voxel map and its parallel build
//	directions    direction sets used to bin streamline tangents
//	mapping       parallel streamline-to-fixel mapping
//	density       per-fixel fibre and track density model
//	codec         binary serialization of contribution lists
//
// # Configuration
//
// Options are passed to New directly or loaded from a TOML file:
//
//	cfg, _ := fixeltrack.LoadConfig("fixeltrack.toml")
//	opts, _ := cfg.Options()
//	p, _ := fixeltrack.New(h, opts...)
package fixeltrack
