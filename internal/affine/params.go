// Package affine implements the affine solver (C6): a parameter-vector
// optimization over linear transforms, with a pluggable local minimizer
// and a scaled parameterization so a unit step in any scaled parameter
// produces roughly a one-voxel displacement at the domain corner, per
// §4.6.
package affine

import (
	"math/rand"

	"github.com/CBICA/greedy/internal/geom"
)

// IdentityParams returns the raw (unscaled) parameter vector for the
// identity transform in D dimensions: zero offset, identity matrix.
func IdentityParams(d int) []float64 {
	x := make([]float64, d*(d+1))
	for r := 0; r < d; r++ {
		x[r*(d+1)+1+r] = 1
	}
	return x
}

// ParamsToMatrix decodes a raw parameter vector, (offset_row, row of M)
// per axis, into a homogeneous transform.
func ParamsToMatrix(x []float64, d int) *geom.HomogeneousMatrix {
	linear := make([]float64, d*d)
	offset := make([]float64, d)
	for r := 0; r < d; r++ {
		offset[r] = x[r*(d+1)]
		for c := 0; c < d; c++ {
			linear[r*d+c] = x[r*(d+1)+1+c]
		}
	}
	return geom.NewHomogeneous(linear, offset)
}

// MatrixToParams is the inverse of ParamsToMatrix.
func MatrixToParams(T *geom.HomogeneousMatrix) []float64 {
	d := T.D
	x := make([]float64, d*(d+1))
	lin := T.Linear()
	off := T.Offset()
	for r := 0; r < d; r++ {
		x[r*(d+1)] = off[r]
		for c := 0; c < d; c++ {
			x[r*(d+1)+1+c] = lin[r*d+c]
		}
	}
	return x
}

// BuildScaling constructs the parameter scale vector from the reference
// geometry's voxel extent: offset components scale by 1 (already in
// voxel units), and M[row][col] scales by the image size along axis
// col, so a unit change of the scaled M parameter displaces the domain
// corner by about one voxel.
func BuildScaling(refGeom *geom.Geometry) []float64 {
	d := refGeom.D
	s := make([]float64, d*(d+1))
	for r := 0; r < d; r++ {
		s[r*(d+1)] = 1
		for c := 0; c < d; c++ {
			extent := float64(refGeom.Size[c])
			if extent < 1 {
				extent = 1
			}
			s[r*(d+1)+1+c] = extent
		}
	}
	return s
}

// ScaleParams returns x*s, element-wise.
func ScaleParams(x, s []float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = x[i] * s[i]
	}
	return out
}

// UnscaleParams returns x/s, element-wise, the inverse of ScaleParams.
func UnscaleParams(x, s []float64) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = x[i] / s[i]
	}
	return out
}

// JitterIdentity returns the identity transform's raw parameters
// perturbed by uniform noise in [-amplitude,+amplitude] applied in
// scaled space, for deterministic random initialization (seeded).
func JitterIdentity(d int, scale []float64, amplitude float64, seed int64) []float64 {
	scaled := ScaleParams(IdentityParams(d), scale)
	rng := rand.New(rand.NewSource(seed))
	for i := range scaled {
		scaled[i] += amplitude * (2*rng.Float64() - 1)
	}
	return UnscaleParams(scaled, scale)
}
