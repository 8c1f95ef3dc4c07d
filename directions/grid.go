package directions

import (
	"math"

	"github.com/hupe1980/fixeltrack/geom"
)

const (
	// gridMinSize is the set size from which Select uses a grid.
	gridMinSize = 64

	gridPolar   = 16
	gridAzimuth = 64

	// gridSlack widens every cell's candidate cone to absorb float32
	// rounding in Select's dot products.
	gridSlack = 1e-2

	// Queries outside this norm range fall back to the linear scan, where
	// float32 dot products may underflow or overflow.
	gridMinNorm = 1e-18
	gridMaxNorm = 1e18
)

// grid partitions the upper hemisphere into polar/azimuth cells. For each cell
// it lists, in ascending order, every direction that can be the nearest one
// to a query inside the cell.
//
// With c the cell centre and r a bound on the angle between c and any point of
// the cell, the nearest direction to a query q satisfies
// angle(u, q) <= angle(u0, c) + r, where u0 is the direction nearest to c.
// Since the axial angle obeys the triangle inequality, every such u lies within
// angle(u0, c) + 2r of c.
type grid struct {
	start []int32 // start[c]:start[c+1] indexes the candidates of cell c
	bins  []int32
}

func newGrid(dirs []geom.Vec3) *grid {
	const (
		dPolar   = math.Pi / 2 / gridPolar
		dAzimuth = 2 * math.Pi / gridAzimuth
	)

	g := &grid{start: make([]int32, 1, gridPolar*gridAzimuth+1)}
	dots := make([]float64, len(dirs))
	for i := 0; i < gridPolar; i++ {
		sp, cp := math.Sincos((float64(i) + 0.5) * dPolar)
		radius := dPolar/2 + sp*dAzimuth/2
		for j := 0; j < gridAzimuth; j++ {
			sa, ca := math.Sincos(-math.Pi + (float64(j)+0.5)*dAzimuth)
			c := [3]float64{sp * ca, sp * sa, cp}

			nearest := 0.0
			for k, u := range dirs {
				dots[k] = math.Abs(float64(u[0])*c[0] + float64(u[1])*c[1] + float64(u[2])*c[2])
				nearest = max(nearest, dots[k])
			}
			limit := math.Acos(min(nearest, 1)) + 2*radius + gridSlack
			minDot := -1.0
			if limit < math.Pi/2 {
				minDot = math.Cos(limit)
			}
			for k, dot := range dots {
				if dot >= minDot {
					g.bins = append(g.bins, int32(k))
				}
			}
			g.start = append(g.start, int32(len(g.bins)))
		}
	}
	return g
}

// cell returns the cell holding the orientation of d. ok is false when d is
// too short, too long or not finite.
func (g *grid) cell(d geom.Vec3) (c int, ok bool) {
	x, y, z := float64(d[0]), float64(d[1]), float64(d[2])
	n := math.Sqrt(x*x + y*y + z*z)
	if !(n >= gridMinNorm && n <= gridMaxNorm) {
		return 0, false
	}
	if z < 0 {
		x, y, z = -x, -y, -z
	}
	polar := math.Acos(min(z/n, 1))
	azimuth := math.Atan2(y, x) + math.Pi
	i := min(int(polar/(math.Pi/2)*gridPolar), gridPolar-1)
	j := min(int(azimuth/(2*math.Pi)*gridAzimuth), gridAzimuth-1)
	return i*gridAzimuth + j, true
}

func (g *grid) candidates(c int) []int32 {
	return g.bins[g.start[c]:g.start[c+1]]
}
