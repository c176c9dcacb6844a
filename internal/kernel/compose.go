package kernel

import "github.com/CBICA/greedy/internal/ndimage"

// Compose computes (u ∘ v)(i) = v(i) + u(i + v(i)), sampling u with
// linear interpolation at the displaced point. u and v must be Vector
// images sharing the same geometry. The result is allocated fresh; u and
// v are not modified.
func Compose(u, v *ndimage.Image) *ndimage.Image {
	d := v.Geom.D
	if u.Channels != d || v.Channels != d {
		panic("kernel: Compose requires D-channel vector fields")
	}
	out := ndimage.Like(v)
	Parallel(out.NumVoxels(), func(start, end int) {
		p := make([]float64, d)
		uAtP := make([]float64, d)
		for lin := start; lin < end; lin++ {
			idx := v.MultiIndex(lin)
			vAtI := v.AtLinear(lin)
			for a := 0; a < d; a++ {
				p[a] = float64(idx[a]) + vAtI[a]
			}
			linearSample(u, p, uAtP)
			res := out.AtLinear(lin)
			for a := 0; a < d; a++ {
				res[a] = vAtI[a] + uAtP[a]
			}
		}
	})
	return out
}
