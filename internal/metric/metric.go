// Package metric implements the per-voxel similarity evaluators (C4):
// SSD, windowed NCC, and histogram-based MI, each queryable either as a
// dense per-voxel gradient field (the deformable solver's view) or
// reduced to a D·(D+1) affine parameter gradient (the affine solver's
// view), per §4.4 of the specification.
package metric

import (
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// Metric evaluates a similarity measure between a pyramid level's fixed
// and moving composites, either densely (per-voxel gradient field) or
// reduced to affine parameters.
type Metric interface {
	// Name identifies the metric for logging and CLI selection.
	Name() string

	// DenseGradient evaluates the metric at displacement field u
	// (Vector image over level.Fixed.Geom). mask, if non-nil, is a
	// single-channel multiplicative weight applied to the gradient
	// field only (never to the returned value), per invariant 3 of §3.
	// Returns the aggregate value and the D-channel gradient field.
	DenseGradient(level *pyramid.Level, u *ndimage.Image, mask *ndimage.Image) (value float64, grad *ndimage.Image)

	// AffineGradient evaluates the metric at linear transform T (voxel
	// space, level.Fixed.Geom), returning the aggregate value and the
	// D·(D+1) parameter gradient (offset, then row of M, per axis).
	AffineGradient(level *pyramid.Level, T *geom.HomogeneousMatrix) (value float64, grad []float64)
}
