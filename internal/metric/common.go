package metric

import (
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// jacobianChain returns the D×D matrix mapping a unit change in the
// fixed-voxel displacement u to the resulting change in moving-voxel
// coordinates, chain[a][b] = d(movingVoxel_a)/d(u_b). Both voxel<->
// physical maps are affine, so this matrix is constant over the image —
// it is recovered from two calls each rather than exposing the
// geometries' internal linear algebra.
func jacobianChain(fixedGeom, movingGeom *geom.Geometry) [][]float64 {
	d := fixedGeom.D
	zero := make([]float64, d)
	base := movingGeom.PhysicalToVoxel(fixedGeom.VoxelToPhysical(zero))

	chain := make([][]float64, d)
	for a := range chain {
		chain[a] = make([]float64, d)
	}
	for b := 0; b < d; b++ {
		e := make([]float64, d)
		e[b] = 1
		moved := movingGeom.PhysicalToVoxel(fixedGeom.VoxelToPhysical(e))
		for a := 0; a < d; a++ {
			chain[a][b] = moved[a] - base[a]
		}
	}
	return chain
}

// spatialGradient returns D composite images, each sharing im's geometry
// and channel count, holding the central-difference partial derivative
// of im along that axis (voxel units), replicate-padded at the border.
func spatialGradient(im *ndimage.Image) []*ndimage.Image {
	d := im.Geom.D
	size := im.Geom.Size
	ch := im.Channels
	grads := make([]*ndimage.Image, d)
	for a := range grads {
		grads[a] = ndimage.Like(im)
	}

	for axis := 0; axis < d; axis++ {
		n := size[axis]
		out := grads[axis]
		kernel.Parallel(im.NumVoxels(), func(start, end int) {
			idx := make([]int, d)
			for v := start; v < end; v++ {
				copy(idx, im.MultiIndex(v))
				pos := idx[axis]
				lo, hi := pos-1, pos+1
				denom := 2.0
				if lo < 0 {
					lo = 0
					denom = 1.0
				}
				if hi >= n {
					hi = n - 1
					if denom == 2.0 {
						denom = 1.0
					}
				}
				idx[axis] = lo
				loVals := im.At(idx)
				idx[axis] = hi
				hiVals := im.At(idx)
				dst := out.AtLinear(v)
				for c := 0; c < ch; c++ {
					dst[c] = (hiVals[c] - loVals[c]) / denom
				}
			}
		})
	}
	return grads
}

// resampleGradientToFixed maps each of the D moving-space gradient
// channel images through the same physical correspondence DenseGradient
// uses for the moving composite itself (fixed voxel i, displacement u),
// producing D images over level.Fixed.Geom.
func resampleGradientToFixed(gradMoving []*ndimage.Image, fixedGeom *geom.Geometry, u *ndimage.Image, mode kernel.Interp) []*ndimage.Image {
	out := make([]*ndimage.Image, len(gradMoving))
	for a, g := range gradMoving {
		out[a] = kernel.ResamplePhysical(g, fixedGeom, u, mode)
	}
	return out
}

// applyMask multiplies every channel of grad by mask in place, skipping
// entirely if mask is nil.
func applyMask(grad, mask *ndimage.Image) {
	if mask == nil {
		return
	}
	kernel.MulByMaskInPlace(grad, mask)
}

// reduceToAffineGradient folds a dense per-voxel gradient field into the
// D·(D+1) affine parameter gradient, encoding (offset_row, then
// M[row][0..D-1]) sequentially per axis: paramGrad[row*(D+1)] accumulates
// d(offset_row), paramGrad[row*(D+1)+1+col] accumulates d(M[row][col]),
// via the outer-product sum Σ_i g(i) ⊗ [1; i].
func reduceToAffineGradient(fixedGeom *geom.Geometry, g *ndimage.Image) []float64 {
	d := fixedGeom.D
	width := d + 1
	return kernel.Reduce(g.NumVoxels(), make([]float64, d*width),
		func(start, end int, acc []float64) []float64 {
			local := make([]float64, d*width)
			idxf := make([]float64, d)
			for v := start; v < end; v++ {
				idx := g.MultiIndex(v)
				for a := 0; a < d; a++ {
					idxf[a] = float64(idx[a])
				}
				gv := g.AtLinear(v)
				for row := 0; row < d; row++ {
					local[row*width] += gv[row]
					for col := 0; col < d; col++ {
						local[row*width+1+col] += gv[row] * idxf[col]
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
}

// affineViaDense evaluates a metric's AffineGradient by building the
// virtual displacement field for T and delegating to dense, then
// reducing the resulting gradient field to affine parameters.
func affineViaDense(level *pyramid.Level, T *geom.HomogeneousMatrix, dense func(u *ndimage.Image) (float64, *ndimage.Image)) (float64, []float64) {
	u := kernel.DisplacementFromAffine(level.Fixed.Geom, T)
	value, grad := dense(u)
	return value, reduceToAffineGradient(level.Fixed.Geom, grad)
}
