package kernel

import (
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

// DisplacementFromAffine expands a voxel-space linear transform T into an
// equivalent displacement field over g: u(i) = T(i) - i. Used both to
// seed the deformable solver from an initial affine and by the metric
// package's affine-gradient query, which evaluates a dense metric
// against this "virtual" field.
func DisplacementFromAffine(g *geom.Geometry, T *geom.HomogeneousMatrix) *ndimage.Image {
	u := ndimage.NewVector(g)
	d := g.D
	Parallel(u.NumVoxels(), func(start, end int) {
		p := make([]float64, d)
		for v := start; v < end; v++ {
			idx := u.MultiIndex(v)
			for a := 0; a < d; a++ {
				p[a] = float64(idx[a])
			}
			moved := T.Apply(p)
			disp := u.AtLinear(v)
			for a := 0; a < d; a++ {
				disp[a] = moved[a] - p[a]
			}
		}
	})
	return u
}
