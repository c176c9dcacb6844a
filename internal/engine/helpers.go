// Package engine wires the core registration packages together into
// the end-to-end scenarios described by the specification's testable
// properties: full deformable, affine, and brute-force runs over small
// synthetic images, built entirely in memory with no file I/O.
package engine

import (
	"math"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
)

// gaussianBlob renders an isotropic Gaussian bump centered at center
// with the given sigma (voxel units) over an identity geometry.
func gaussianBlob(size []int, center []float64, sigma float64) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	d := len(size)
	for v := 0; v < im.NumVoxels(); v++ {
		idx := im.MultiIndex(v)
		var sumSq float64
		for a := 0; a < d; a++ {
			diff := float64(idx[a]) - center[a]
			sumSq += diff * diff
		}
		im.SetLinear(v, []float64{math.Exp(-sumSq / (2 * sigma * sigma))})
	}
	return im
}

// singleBrightPixel returns a zero image with one voxel set to 1.
func singleBrightPixel(size []int, pixel []int) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	im.Set(pixel, []float64{1})
	return im
}

// scaleIntensity returns a copy of im with every sample affine-mapped
// by v -> a*v+b — used to build an NCC contrast-invariance fixture.
func scaleIntensity(im *ndimage.Image, a, b float64) *ndimage.Image {
	out := ndimage.Like(im)
	for i, v := range im.Data {
		out.Data[i] = a*v + b
	}
	return out
}

// resampleThroughVoxelMatrix builds the image that results from
// sampling src at T(i) for every voxel i of src's own grid — used to
// construct a moving image related to a fixed image by a known affine.
func resampleThroughVoxelMatrix(src *ndimage.Image, T *geom.HomogeneousMatrix) *ndimage.Image {
	u := kernel.DisplacementFromAffine(src.Geom, T)
	return kernel.ResampleByDisplacement(src, u, kernel.Linear)
}

// linearRampField returns a displacement field whose only nonzero
// component is axis, varying linearly across the grid from -amplitude/2
// at index 0 to +amplitude/2 at the far edge — a smooth, small, non-constant field
// suitable for exercising multi-entry chain composition.
func linearRampField(g *geom.Geometry, axis int, amplitude float64) *ndimage.Image {
	f := ndimage.NewVector(g)
	size := g.Size[axis]
	for v := 0; v < f.NumVoxels(); v++ {
		idx := f.MultiIndex(v)
		val := f.AtLinear(v)
		val[axis] = amplitude * (float64(idx[axis])/float64(size-1) - 0.5)
	}
	return f
}

// scaleField returns a copy of f with every component multiplied by s.
func scaleField(f *ndimage.Image, s float64) *ndimage.Image {
	out := ndimage.Like(f)
	for i, v := range f.Data {
		out.Data[i] = v * s
	}
	return out
}
