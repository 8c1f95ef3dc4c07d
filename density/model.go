package density

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/fixel"
	"github.com/hupe1980/fixeltrack/geom"
)

// Model couples a fixel map of Fixel payloads with the quantization scale of
// the contribution lists it aggregates. Model is not safe for concurrent use.
type Model struct {
	index  *fixel.Map[Fixel]
	scale  contribution.Scale
	fodSum float64
	tdSum  float64
}

// NewModel wraps index. The FOD sum is computed from the current fixel weights.
func NewModel(index *fixel.Map[Fixel], scale contribution.Scale) *Model {
	m := &Model{index: index, scale: scale}
	m.recomputeFOD()
	return m
}

// Index returns the underlying fixel map.
func (m *Model) Index() *fixel.Map[Fixel] { return m.index }

func (m *Model) recomputeFOD() {
	m.fodSum = 0
	for _, f := range m.index.All() {
		m.fodSum += f.FOD * float64(f.Weight)
	}
}

// SetWeights assigns every fixel of voxel p the weight returned by weight.
// This is how a processing mask is applied.
func (m *Model) SetWeights(weight func(geom.Point3d) float32) {
	for p, e := range m.index.Voxels() {
		w := weight(p)
		for _, f := range m.index.Fixels(e) {
			f.Weight = w
		}
	}
	m.recomputeFOD()
}

// Accumulate adds the decoded record lengths of lists to the track density of
// their fixels.
func (m *Model) Accumulate(lists ...contribution.List) {
	for _, l := range lists {
		for r := range l.All() {
			f := m.index.At(r.FixelIndex())
			length := float64(r.Length(m.scale))
			f.TD += length
			m.tdSum += length * float64(f.Weight)
		}
	}
}

// ClearTD resets the track density of every fixel.
func (m *Model) ClearTD() {
	for _, f := range m.index.All() {
		f.TD = 0
	}
	m.tdSum = 0
}

// FODSum returns the weighted fibre density of all fixels.
func (m *Model) FODSum() float64 { return m.fodSum }

// TDSum returns the weighted track density of all fixels.
func (m *Model) TDSum() float64 { return m.tdSum }

// Mu returns the proportionality coefficient between fibre and track density,
// or 0 before any track density has been accumulated.
func (m *Model) Mu() float64 {
	if m.tdSum == 0 {
		return 0
	}
	return m.fodSum / m.tdSum
}

// Cost returns the model cost at the current μ.
func (m *Model) Cost() float64 {
	mu := m.Mu()
	var cost float64
	for _, f := range m.index.All() {
		cost += f.Cost(mu)
	}
	return cost
}

// Untracked returns the fixels with non-zero weight that no streamline reached.
func (m *Model) Untracked() *roaring.Bitmap {
	bm := roaring.New()
	for i, f := range m.index.All() {
		if f.TD == 0 && f.Weight > 0 {
			bm.Add(i)
		}
	}
	return bm
}
