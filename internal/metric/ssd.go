package metric

import (
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// SSD is the sum-of-squared-differences similarity, m(i) = Σ_k w_k *
// (F_k(i) - M_k(i+u))^2, minimized directly (no sign flip).
type SSD struct{}

func (SSD) Name() string { return "SSD" }

func (s SSD) DenseGradient(level *pyramid.Level, u *ndimage.Image, mask *ndimage.Image) (float64, *ndimage.Image) {
	value, grad := s.dense(level, u)
	applyMask(grad, mask)
	return value, grad
}

func (s SSD) AffineGradient(level *pyramid.Level, T *geom.HomogeneousMatrix) (float64, []float64) {
	return affineViaDense(level, T, func(u *ndimage.Image) (float64, *ndimage.Image) {
		return s.dense(level, u)
	})
}

// dense computes the value and unmasked gradient shared by both query
// modes. The gradient of the chain F-M(x+u) through the moving image's
// own (possibly distinct) geometry follows the analytic spatial
// gradient of the resampled moving channel, per §4.4.
func (SSD) dense(level *pyramid.Level, u *ndimage.Image) (float64, *ndimage.Image) {
	fixed := level.Fixed
	moving := level.Moving
	weights := level.Weights
	ch := fixed.Channels
	d := fixed.Geom.D

	movingAtU, validMask := kernel.ResamplePhysicalWithValidity(moving, fixed.Geom, u, kernel.Linear)
	gradMoving := spatialGradient(moving)
	gradAtU := resampleGradientToFixed(gradMoving, fixed.Geom, u, kernel.Linear)
	chain := jacobianChain(fixed.Geom, moving.Geom)

	grad := ndimage.NewVector(fixed.Geom)

	value := kernel.PartialFloat64(fixed.NumVoxels(), 0,
		func(start, end int, acc float64) float64 {
			diff := make([]float64, ch)
			movingGradAtVoxel := make([]float64, d) // per channel, filled below
			for v := start; v < end; v++ {
				g := grad.AtLinear(v)
				for b := 0; b < d; b++ {
					g[b] = 0
				}

				valid := validMask.AtLinear(v)[0]
				if valid == 0 {
					// moved outside the moving image's domain: contributes
					// 0 to both the value and the gradient, per §4.4.
					continue
				}

				fv := fixed.AtLinear(v)
				mv := movingAtU.AtLinear(v)
				for c := 0; c < ch; c++ {
					diff[c] = fv[c] - mv[c]
					acc += weights[c] * diff[c] * diff[c]
				}

				for c := 0; c < ch; c++ {
					for a := 0; a < d; a++ {
						movingGradAtVoxel[a] = gradAtU[a].AtLinear(v)[c]
					}
					coeff := -2 * weights[c] * diff[c]
					for bAxis := 0; bAxis < d; bAxis++ {
						var sum float64
						for a := 0; a < d; a++ {
							sum += movingGradAtVoxel[a] * chain[a][bAxis]
						}
						g[bAxis] += coeff * sum
					}
				}
			}
			return acc
		},
		func(a, b float64) float64 { return a + b })

	return value, grad
}
