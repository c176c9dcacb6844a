package kernel

import (
	"math"

	"github.com/CBICA/greedy/internal/ndimage"
	"gonum.org/v1/gonum/mat"
)

// JacobianDeterminant computes det(I + ∂u/∂i) at every voxel of the
// displacement field u via central differences (one-sided at the grid
// boundary), returning a scalar image plus the min and max determinant
// observed — the reporting figures emitted at the end of each
// deformable level.
func JacobianDeterminant(u *ndimage.Image) (det *ndimage.Image, minVal, maxVal float64) {
	d := u.Geom.D
	if u.Channels != d {
		panic("kernel: JacobianDeterminant requires a D-channel vector field")
	}
	det = ndimage.NewScalar(u.Geom)
	size := u.Geom.Size

	Parallel(det.NumVoxels(), func(start, end int) {
		jac := mat.NewDense(d, d, nil)
		idxPlus := make([]int, d)
		idxMinus := make([]int, d)
		for lin := start; lin < end; lin++ {
			idx := u.MultiIndex(lin)
			for col := 0; col < d; col++ {
				copy(idxPlus, idx)
				copy(idxMinus, idx)
				hp, hm := 1.0, 1.0
				if idx[col]+1 < size[col] {
					idxPlus[col] = idx[col] + 1
				} else {
					hp = 0 // no forward neighbor: fall back to one-sided difference
				}
				if idx[col]-1 >= 0 {
					idxMinus[col] = idx[col] - 1
				} else {
					hm = 0
				}
				up := u.At(idxPlus)
				um := u.At(idxMinus)
				denom := hp + hm
				if denom == 0 {
					denom = 1
				}
				for row := 0; row < d; row++ {
					kron := 0.0
					if row == col {
						kron = 1
					}
					jac.Set(row, col, kron+(up[row]-um[row])/denom)
				}
			}
			det.Data[lin] = mat.Det(jac)
		}
	})

	minVal = PartialFloat64(len(det.Data), math.Inf(1), func(start, end int, _ float64) float64 {
		m := math.Inf(1)
		for _, v := range det.Data[start:end] {
			if v < m {
				m = v
			}
		}
		return m
	}, math.Min)
	maxVal = PartialFloat64(len(det.Data), math.Inf(-1), func(start, end int, _ float64) float64 {
		m := math.Inf(-1)
		for _, v := range det.Data[start:end] {
			if v > m {
				m = v
			}
		}
		return m
	}, math.Max)
	return det, minVal, maxVal
}
