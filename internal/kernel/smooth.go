package kernel

import (
	"math"

	"github.com/CBICA/greedy/internal/ndimage"
)

// gaussianTaps returns normalized 1-D Gaussian weights for the given
// sigma (in voxels), truncated at truncate standard deviations. A
// non-positive sigma yields the identity kernel {1}.
func gaussianTaps(sigma, truncate float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(math.Ceil(truncate * sigma))
	if radius < 1 {
		radius = 1
	}
	taps := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		taps[i+radius] = w
		sum += w
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// GaussianSmoothBorder separable-convolves im with a Gaussian of the
// given per-axis sigma (voxel units), replicate-padding at the border so
// the response near the edge matches the infinite-domain result to
// within O(sigma) voxels. A zero sigma on an axis skips that axis
// entirely. Returns a new image; im is not modified.
func GaussianSmoothBorder(im *ndimage.Image, sigmaVox []float64) *ndimage.Image {
	const truncate = 3.0
	cur := im.Clone()
	tmp := ndimage.Like(im)
	for axis, sigma := range sigmaVox {
		if sigma <= 0 {
			continue
		}
		taps := gaussianTaps(sigma, truncate)
		convolveAxis(cur, tmp, axis, taps)
		cur, tmp = tmp, cur
	}
	return cur
}

// convolveAxis convolves src along axis with taps (odd length, centered)
// using replicate boundary handling, writing the result into dst. src
// and dst must share shape and must not alias the same backing array.
func convolveAxis(src, dst *ndimage.Image, axis int, taps []float64) {
	radius := len(taps) / 2
	size := src.Geom.Size
	n := size[axis]
	ch := src.Channels

	// Stride of `axis` in the voxel-linear index.
	stride := 1
	for a := 0; a < axis; a++ {
		stride *= size[a]
	}
	// Total number of 1-D lines running along `axis`.
	numVoxels := src.NumVoxels()
	numLines := numVoxels / n

	Parallel(numLines, func(startLine, endLine int) {
		for lineIdx := startLine; lineIdx < endLine; lineIdx++ {
			// Decompose lineIdx into the voxel-linear base address of
			// position 0 along `axis`, holding all other axes fixed.
			base := lineBase(lineIdx, size, axis, stride)
			for pos := 0; pos < n; pos++ {
				outOff := (base + pos*stride) * ch
				for c := 0; c < ch; c++ {
					var acc float64
					for k := -radius; k <= radius; k++ {
						sp := pos + k
						if sp < 0 {
							sp = 0
						} else if sp >= n {
							sp = n - 1
						}
						acc += taps[k+radius] * src.Data[(base+sp*stride)*ch+c]
					}
					dst.Data[outOff+c] = acc
				}
			}
		}
	})
}

// lineBase computes the voxel-linear index of position 0 along `axis`
// for the lineIdx-th line (lines enumerated in the natural order of all
// axes except `axis`, axis 0 fastest among those).
func lineBase(lineIdx int, size []int, axis, axisStride int) int {
	base := 0
	outerStride := 1
	for a, n := range size {
		if a == axis {
			continue
		}
		coord := (lineIdx / outerStride) % n
		// Stride of axis `a` in the full voxel-linear index.
		aStride := 1
		for b := 0; b < a; b++ {
			aStride *= size[b]
		}
		base += coord * aStride
		outerStride *= n
	}
	return base
}

// boxTaps returns uniform 1-D weights covering 2*radius+1 voxels,
// normalized to sum to one (a moving average, not a raw sum).
func boxTaps(radius int) []float64 {
	if radius < 0 {
		radius = 0
	}
	taps := make([]float64, 2*radius+1)
	w := 1.0 / float64(len(taps))
	for i := range taps {
		taps[i] = w
	}
	return taps
}

// BoxAverage separable-convolves im with a uniform (moving-average)
// window of the given per-axis voxel radius, replicate-padding at the
// border. It is the patch-mean primitive windowed NCC builds its
// running sums from: BoxAverage of X, X*X and X*Y over the same radius
// gives the local mean, variance and covariance in O(1) amortized work
// per voxel. A zero radius on an axis skips that axis entirely.
func BoxAverage(im *ndimage.Image, radiusVox []int) *ndimage.Image {
	cur := im.Clone()
	tmp := ndimage.Like(im)
	for axis, r := range radiusVox {
		if r <= 0 {
			continue
		}
		convolveAxis(cur, tmp, axis, boxTaps(r))
		cur, tmp = tmp, cur
	}
	return cur
}

// VoxelSigma converts a sigma given in millimeters (world units) to
// voxel units per axis, using the geometry's own per-axis spacing.
func VoxelSigma(sigmaMM []float64, spacing []float64) []float64 {
	out := make([]float64, len(sigmaMM))
	for i := range out {
		out[i] = sigmaMM[i] / spacing[i]
	}
	return out
}
