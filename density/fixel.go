package density

import (
	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
)

// Fixel is the payload of one fixel in the filtering model.
type Fixel struct {
	// FOD is the fibre density of the lobe.
	FOD float64
	// TD is the accumulated streamline density.
	TD float64
	// Weight is the processing-mask weight of the fixel.
	Weight float32
	// Dir is the mean direction of the lobe.
	Dir geom.Vec3
}

// NewFixel builds a Fixel from its segmented lobe. It is suitable as the
// constructor argument of fixel.New.
func NewFixel(l fixel.Lobe) Fixel {
	return Fixel{
		FOD:    float64(l.Integral),
		Weight: 1,
		Dir:    l.MeanDir,
	}
}

// Diff returns TD·mu − FOD.
func (f Fixel) Diff(mu float64) float64 {
	return f.TD*mu - f.FOD
}

// Cost returns the weighted squared difference at mu.
func (f Fixel) Cost(mu float64) float64 {
	d := f.Diff(mu)
	return d * d * float64(f.Weight)
}
