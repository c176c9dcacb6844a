package metric

import (
	"math"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// NCC is the windowed local normalized cross-correlation metric,
// implemented via running box-filter sums of F, M, F², M² and F·M so
// per-voxel cost and gradient are O(1) amortized, per §4.4. The value is
// reported negated (cc ranges [0,1] with 1 best), so minimizers drive it
// down like the other two metrics.
type NCC struct {
	// Radius is the patch half-width in voxels, applied uniformly to
	// every axis; the window is (2*Radius+1)^D.
	Radius int
	// Eps stabilizes the variance-product denominator on flat patches.
	Eps float64
}

// NewNCC returns an NCC metric with the given patch radius and the
// documented default epsilon.
func NewNCC(radius int) NCC {
	return NCC{Radius: radius, Eps: 1e-5}
}

func (n NCC) Name() string { return "NCC" }

func (n NCC) DenseGradient(level *pyramid.Level, u *ndimage.Image, mask *ndimage.Image) (float64, *ndimage.Image) {
	value, grad := n.dense(level, u)
	applyMask(grad, mask)
	return value, grad
}

func (n NCC) AffineGradient(level *pyramid.Level, T *geom.HomogeneousMatrix) (float64, []float64) {
	return affineViaDense(level, T, func(u *ndimage.Image) (float64, *ndimage.Image) {
		return n.dense(level, u)
	})
}

func elementwiseSquare(im *ndimage.Image) *ndimage.Image {
	out := ndimage.Like(im)
	for i, v := range im.Data {
		out.Data[i] = v * v
	}
	return out
}

func elementwiseProduct(a, b *ndimage.Image) *ndimage.Image {
	out := ndimage.Like(a)
	for i := range out.Data {
		out.Data[i] = a.Data[i] * b.Data[i]
	}
	return out
}

func (n NCC) dense(level *pyramid.Level, u *ndimage.Image) (float64, *ndimage.Image) {
	fixed := level.Fixed
	moving := level.Moving
	weights := level.Weights
	ch := fixed.Channels
	d := fixed.Geom.D

	movingAtU, validMask := kernel.ResamplePhysicalWithValidity(moving, fixed.Geom, u, kernel.Linear)
	gradMoving := spatialGradient(moving)
	gradAtU := resampleGradientToFixed(gradMoving, fixed.Geom, u, kernel.Linear)
	chain := jacobianChain(fixed.Geom, moving.Geom)

	radii := make([]int, d)
	for a := range radii {
		radii[a] = n.Radius
	}

	meanF := kernel.BoxAverage(fixed, radii)
	meanM := kernel.BoxAverage(movingAtU, radii)
	meanFF := kernel.BoxAverage(elementwiseSquare(fixed), radii)
	meanMM := kernel.BoxAverage(elementwiseSquare(movingAtU), radii)
	meanFM := kernel.BoxAverage(elementwiseProduct(fixed, movingAtU), radii)

	grad := ndimage.NewVector(fixed.Geom)
	eps := n.Eps

	value := kernel.PartialFloat64(fixed.NumVoxels(), 0,
		func(start, end int, acc float64) float64 {
			movingGradAtVoxel := make([]float64, d)
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
				mF := meanF.AtLinear(v)
				mM := meanM.AtLinear(v)
				mFF := meanFF.AtLinear(v)
				mMM := meanMM.AtLinear(v)
				mFM := meanFM.AtLinear(v)

				for c := 0; c < ch; c++ {
					varF := mFF[c] - mF[c]*mF[c]
					varM := mMM[c] - mM[c]*mM[c]
					covFM := mFM[c] - mF[c]*mM[c]
					denom := varF*varM + eps
					cc := covFM * covFM / denom
					acc -= weights[c] * cc

					dccDMu := 2 * covFM / denom * ((fv[c] - mF[c]) - (covFM/(varM+eps))*(mv[c]-mM[c]))

					for a := 0; a < d; a++ {
						movingGradAtVoxel[a] = gradAtU[a].AtLinear(v)[c]
					}
					coeff := -weights[c] * dccDMu
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

	if math.IsNaN(value) {
		value = 0
	}
	return value, grad
}

// ValueMap returns the per-voxel weighted NCC sum (positive, higher is
// better) for displacement field u, without computing a gradient — the
// dense metric map the brute-force solver (C7) scans over every
// candidate constant offset.
func (n NCC) ValueMap(level *pyramid.Level, u *ndimage.Image) *ndimage.Image {
	fixed := level.Fixed
	moving := level.Moving
	weights := level.Weights
	ch := fixed.Channels
	d := fixed.Geom.D

	movingAtU, validMask := kernel.ResamplePhysicalWithValidity(moving, fixed.Geom, u, kernel.Linear)

	radii := make([]int, d)
	for a := range radii {
		radii[a] = n.Radius
	}
	meanF := kernel.BoxAverage(fixed, radii)
	meanM := kernel.BoxAverage(movingAtU, radii)
	meanFF := kernel.BoxAverage(elementwiseSquare(fixed), radii)
	meanMM := kernel.BoxAverage(elementwiseSquare(movingAtU), radii)
	meanFM := kernel.BoxAverage(elementwiseProduct(fixed, movingAtU), radii)

	out := ndimage.NewScalar(fixed.Geom)
	eps := n.Eps
	kernel.Parallel(out.NumVoxels(), func(start, end int) {
		for v := start; v < end; v++ {
			if validMask.AtLinear(v)[0] == 0 {
				out.Data[v] = 0
				continue
			}
			mF := meanF.AtLinear(v)
			mM := meanM.AtLinear(v)
			mFF := meanFF.AtLinear(v)
			mMM := meanMM.AtLinear(v)
			mFM := meanFM.AtLinear(v)
			var sum float64
			for c := 0; c < ch; c++ {
				varF := mFF[c] - mF[c]*mF[c]
				varM := mMM[c] - mM[c]*mM[c]
				covFM := mFM[c] - mF[c]*mM[c]
				cc := covFM * covFM / (varF*varM + eps)
				sum += weights[c] * cc
			}
			out.Data[v] = sum
		}
	})
	return out
}
