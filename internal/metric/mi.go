package metric

import (
	"math"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
	"gonum.org/v1/gonum/stat"
)

// MI is the mutual-information metric, built from a joint intensity
// histogram over nearest-bin fixed samples and linearly (Parzen) binned
// moving samples — the fixed channel needs no gradient, so a hard
// assignment there costs nothing in accuracy; the moving channel's soft
// binning is what keeps the metric differentiable in u. Reported
// negated, like NCC, since higher mutual information is better.
type MI struct {
	// Bins is the number of histogram bins per marginal.
	Bins int
}

// NewMI returns an MI metric with the given bin count, or a documented
// default of 32 bins if bins <= 0.
func NewMI(bins int) MI {
	if bins <= 0 {
		bins = 32
	}
	return MI{Bins: bins}
}

func (m MI) Name() string { return "MI" }

func (m MI) DenseGradient(level *pyramid.Level, u *ndimage.Image, mask *ndimage.Image) (float64, *ndimage.Image) {
	value, grad := m.dense(level, u)
	applyMask(grad, mask)
	return value, grad
}

func (m MI) AffineGradient(level *pyramid.Level, T *geom.HomogeneousMatrix) (float64, []float64) {
	return affineViaDense(level, T, func(u *ndimage.Image) (float64, *ndimage.Image) {
		return m.dense(level, u)
	})
}

func channelRange(im *ndimage.Image, c int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	ch := im.Channels
	for v := 0; v < im.NumVoxels(); v++ {
		x := im.Data[v*ch+c]
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// safeEntropy computes -Σ p*ln(p) over a probability vector, delegating
// to gonum/stat which already treats 0*log(0) as 0.
func safeEntropy(p []float64) float64 {
	return stat.Entropy(p)
}

func (m MI) dense(level *pyramid.Level, u *ndimage.Image) (float64, *ndimage.Image) {
	fixed := level.Fixed
	moving := level.Moving
	weights := level.Weights
	ch := fixed.Channels
	d := fixed.Geom.D
	nb := m.Bins

	movingAtU, validMask := kernel.ResamplePhysicalWithValidity(moving, fixed.Geom, u, kernel.Linear)
	gradMoving := spatialGradient(moving)
	gradAtU := resampleGradientToFixed(gradMoving, fixed.Geom, u, kernel.Linear)
	chain := jacobianChain(fixed.Geom, moving.Geom)

	grad := ndimage.NewVector(fixed.Geom)
	n := fixed.NumVoxels()
	validCount := 0
	for v := 0; v < n; v++ {
		if validMask.AtLinear(v)[0] != 0 {
			validCount++
		}
	}
	if validCount == 0 {
		return 0, grad
	}
	var value float64

	for c := 0; c < ch; c++ {
		fmin, fmax := channelRange(fixed, c)
		mmin, mmax := channelRange(movingAtU, c)
		fBinWidth := (fmax - fmin) / float64(nb-1)
		mBinWidth := (mmax - mmin) / float64(nb-1)

		fixedBin := func(v int) int {
			bi := int(math.Round((fixed.Data[v*ch+c] - fmin) / fBinWidth))
			return kernel.ClampBin(bi, nb)
		}
		movingBinFrac := func(v int) (b0 int, w0, w1 float64) {
			pos := (movingAtU.Data[v*ch+c] - mmin) / mBinWidth
			b0f := math.Floor(pos)
			frac := pos - b0f
			b0 = kernel.ClampBin(int(b0f), nb)
			b1 := kernel.ClampBin(int(b0f)+1, nb)
			if b1 == b0 {
				return b0, 1, 0
			}
			return b0, 1 - frac, frac
		}

		joint := kernel.Reduce(n, make([]float64, nb*nb),
			func(start, end int, acc []float64) []float64 {
				local := make([]float64, nb*nb)
				for v := start; v < end; v++ {
					if validMask.AtLinear(v)[0] == 0 {
						// moved outside the moving image's domain: excluded
						// from the histogram entirely, per §4.4.
						continue
					}
					a := fixedBin(v)
					b0, w0, w1 := movingBinFrac(v)
					local[a*nb+b0] += w0
					if w1 != 0 {
						b1 := b0 + 1
						if b1 < nb {
							local[a*nb+b1] += w1
						}
					}
				}
				return local
			},
			func(a, b []float64) []float64 {
				out := make([]float64, len(a))
				for i := range out {
					out[i] = a[i] + b[i]
				}
				return out
			})

		margF := make([]float64, nb)
		margM := make([]float64, nb)
		for a := 0; a < nb; a++ {
			for b := 0; b < nb; b++ {
				margF[a] += joint[a*nb+b]
				margM[b] += joint[a*nb+b]
			}
		}

		pJoint := make([]float64, nb*nb)
		pF := make([]float64, nb)
		pM := make([]float64, nb)
		for i, v := range joint {
			pJoint[i] = v / float64(validCount)
		}
		for a := range margF {
			pF[a] = margF[a] / float64(validCount)
		}
		for b := range margM {
			pM[b] = margM[b] / float64(validCount)
		}

		hJoint := safeEntropy(pJoint)
		hF := safeEntropy(pF)
		hM := safeEntropy(pM)
		mi := hF + hM - hJoint
		value -= weights[c] * mi

		logRatio := func(a, b int) float64 {
			if pJoint[a*nb+b] <= 0 || pF[a] <= 0 || pM[b] <= 0 {
				return 0
			}
			return math.Log(pJoint[a*nb+b] / (pF[a] * pM[b]))
		}

		movingGradAtVoxel := make([]float64, d)
		for v := 0; v < n; v++ {
			if validMask.AtLinear(v)[0] == 0 {
				// moved outside the moving image's domain: 0 gradient
				// contribution, per §4.4.
				continue
			}
			a := fixedBin(v)
			b0, _, w1 := movingBinFrac(v)
			dw0 := -1 / mBinWidth
			dw1 := 1 / mBinWidth
			dMIdMu := logRatio(a, b0) * dw0 / float64(validCount)
			if w1 != 0 && b0+1 < nb {
				dMIdMu += logRatio(a, b0+1) * dw1 / float64(validCount)
			}
			coeff := -weights[c] * dMIdMu

			for aAxis := 0; aAxis < d; aAxis++ {
				movingGradAtVoxel[aAxis] = gradAtU[aAxis].AtLinear(v)[c]
			}
			g := grad.AtLinear(v)
			for bAxis := 0; bAxis < d; bAxis++ {
				var sum float64
				for aAxis := 0; aAxis < d; aAxis++ {
					sum += movingGradAtVoxel[aAxis] * chain[aAxis][bAxis]
				}
				g[bAxis] += coeff * sum
			}
		}
	}

	return value, grad
}
