package metric

import (
	"math"

	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// CheckGradient compares a metric's analytic dense gradient against a
// four-point central difference of its value at every voxel and
// channel, returning the largest absolute and relative discrepancies.
// It re-evaluates the metric O(voxels*D) times and is only intended for
// small synthetic test fixtures (the derivative-check debug mode
// mentioned in the design notes), never for production-size volumes.
func CheckGradient(level *pyramid.Level, m Metric, u *ndimage.Image, h float64) (maxAbsErr, maxRelErr float64) {
	_, analytic := m.DenseGradient(level, u, nil)
	d := u.Geom.D

	for v := 0; v < u.NumVoxels(); v++ {
		for axis := 0; axis < d; axis++ {
			up := u.Clone()
			up.AtLinear(v)[axis] += h
			down := u.Clone()
			down.AtLinear(v)[axis] -= h
			up2 := u.Clone()
			up2.AtLinear(v)[axis] += 2 * h
			down2 := u.Clone()
			down2.AtLinear(v)[axis] -= 2 * h

			vPlus, _ := m.DenseGradient(level, up, nil)
			vMinus, _ := m.DenseGradient(level, down, nil)
			vPlus2, _ := m.DenseGradient(level, up2, nil)
			vMinus2, _ := m.DenseGradient(level, down2, nil)
			numeric := (vMinus2 - 8*vMinus + 8*vPlus - vPlus2) / (12 * h)
			want := analytic.AtLinear(v)[axis]

			absErr := math.Abs(numeric - want)
			if absErr > maxAbsErr {
				maxAbsErr = absErr
			}
			denom := math.Max(math.Abs(numeric), 1e-8)
			if rel := absErr / denom; rel > maxRelErr {
				maxRelErr = rel
			}
		}
	}
	return maxAbsErr, maxRelErr
}
