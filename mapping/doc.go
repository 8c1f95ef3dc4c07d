// Package mapping turns streamlines into per-streamline contribution lists.
//
// Each streamline is walked segment by segment. Segments are split into pieces
// no longer than the step size; the midpoint of every piece selects a voxel and
// the piece direction selects a direction bin. Lengths are first accumulated
// per (voxel, bin) pair, then resolved to fixels through the frozen fixel map
// and fed to a contribution.Builder, which merges hits on the same fixel.
//
// MapAll runs the walk on a pool of workers. Workers only read the fixel map,
// so it needs no locking; every result is written once into the slot named by
// the streamline's index, never by completion order.
//
//	m, _ := mapping.New(fixelMap, dirs, scale, mapping.WithWorkers(8))
//	lists, stats, err := m.MapAll(ctx, streamlines, count)
package mapping
