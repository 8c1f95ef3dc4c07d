// Package density aggregates per-streamline contributions into per-fixel track
// density and compares it with the fibre density of the segmented FODs.
//
// It provides the fixel payload used by the filtering model and the
// quantities the external optimisation loop works from: the proportionality
// coefficient μ = ΣFOD / ΣTD and the weighted squared-error cost
// Σ w·(TD·μ − FOD)² over all valid fixels.
package density
