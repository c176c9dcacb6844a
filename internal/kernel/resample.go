package kernel

import (
	"math"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

// Interp selects the sampling kernel used when reading a non-grid point.
type Interp int

const (
	// Linear interpolation (multilinear in N-D), boundary-replicated.
	Linear Interp = iota
	// Nearest selects the closest grid voxel — used for label images.
	Nearest
)

// sampleAt reads src at a fractional voxel coordinate using replicate
// boundary handling, writing Channels values into out.
func sampleAt(src *ndimage.Image, p []float64, mode Interp, out []float64) {
	switch mode {
	case Nearest:
		idx := make([]int, len(p))
		for i, v := range p {
			idx[i] = clampInt(int(math.Round(v)), src.Geom.Size[i])
		}
		copy(out, src.At(idx))
	default:
		linearSample(src, p, out)
	}
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// ClampBin clamps a histogram bin index into [0, n) — shared by the
// metric package's MI histogram builder.
func ClampBin(v, n int) int { return clampInt(v, n) }

// linearSample performs multilinear interpolation at fractional voxel
// coordinates p with replicate boundary handling.
func linearSample(src *ndimage.Image, p []float64, out []float64) {
	d := src.Geom.D
	lo := make([]int, d)
	frac := make([]float64, d)
	for i, v := range p {
		f := math.Floor(v)
		lo[i] = int(f)
		frac[i] = v - f
	}

	for c := range out {
		out[c] = 0
	}

	corners := 1 << uint(d)
	idx := make([]int, d)
	for corner := 0; corner < corners; corner++ {
		weight := 1.0
		for axis := 0; axis < d; axis++ {
			bit := (corner >> uint(axis)) & 1
			coord := lo[axis] + bit
			idx[axis] = clampInt(coord, src.Geom.Size[axis])
			if bit == 1 {
				weight *= frac[axis]
			} else {
				weight *= 1 - frac[axis]
			}
		}
		if weight == 0 {
			continue
		}
		vals := src.At(idx)
		for c := range out {
			out[c] += weight * vals[c]
		}
	}
}

// ResampleByDisplacement produces T such that T(i) = S(i + u(i)), using
// linear interpolation for scalar/composite images or nearest-neighbor
// for label images, assuming u and src share the same voxel grid (the
// usual case within one pyramid level, per invariant 1 of §3). u must be
// a Vector image (Channels == D).
func ResampleByDisplacement(src, u *ndimage.Image, mode Interp) *ndimage.Image {
	if u.Channels != u.Geom.D {
		panic("kernel: displacement field must have D channels")
	}
	out := ndimage.New(u.Geom, src.Kind, src.Channels)
	d := u.Geom.D
	Parallel(out.NumVoxels(), func(start, end int) {
		p := make([]float64, d)
		vals := make([]float64, src.Channels)
		for v := start; v < end; v++ {
			idx := out.MultiIndex(v)
			disp := u.AtLinear(v)
			for a := 0; a < d; a++ {
				p[a] = float64(idx[a]) + disp[a]
			}
			sampleAt(src, p, mode, vals)
			out.SetLinear(v, vals)
		}
	})
	return out
}

// InBounds reports whether fractional voxel coordinate p falls within
// g's grid, i.e. sampleAt would read it without clamping to the border.
func InBounds(g *geom.Geometry, p []float64) bool {
	for a, v := range p {
		if v < 0 || v > float64(g.Size[a]-1) {
			return false
		}
	}
	return true
}

// ResamplePhysical produces T such that T(i) = S(geom_S^-1(geom_T(i))),
// mapping each reference voxel to moving voxel coordinates through
// physical space rather than assuming a shared grid — the general case
// used by the reslicer when input images have independent geometries.
// An optional displacement field u (defined on refGeom, voxel units of
// refGeom) is added to the reference voxel index before it is mapped to
// physical space, if non-nil.
func ResamplePhysical(src *ndimage.Image, refGeom *geom.Geometry, u *ndimage.Image, mode Interp) *ndimage.Image {
	out, _ := resamplePhysical(src, refGeom, u, mode, false)
	return out
}

// ResamplePhysicalWithValidity is ResamplePhysical plus a companion
// scalar mask, 1 where the sampled point fell inside src's domain and 0
// where it had to be border-clamped — per §4.4's tie-break policy,
// callers use this to zero out a metric's value and gradient
// contribution at voxels that moved outside the moving image.
func ResamplePhysicalWithValidity(src *ndimage.Image, refGeom *geom.Geometry, u *ndimage.Image, mode Interp) (*ndimage.Image, *ndimage.Image) {
	return resamplePhysical(src, refGeom, u, mode, true)
}

func resamplePhysical(src *ndimage.Image, refGeom *geom.Geometry, u *ndimage.Image, mode Interp, trackValidity bool) (*ndimage.Image, *ndimage.Image) {
	out := ndimage.New(refGeom, src.Kind, src.Channels)
	var valid *ndimage.Image
	if trackValidity {
		valid = ndimage.NewScalar(refGeom)
	}
	d := refGeom.D
	Parallel(out.NumVoxels(), func(start, end int) {
		vals := make([]float64, src.Channels)
		fidx := make([]float64, d)
		for v := start; v < end; v++ {
			idx := out.MultiIndex(v)
			for a := 0; a < d; a++ {
				fidx[a] = float64(idx[a])
			}
			phys := refGeom.VoxelToPhysical(fidx)
			if u != nil {
				disp := u.AtLinear(v)
				for a := 0; a < d; a++ {
					fidx[a] += disp[a]
				}
				phys = refGeom.VoxelToPhysical(fidx)
			}
			movingVoxel := src.Geom.PhysicalToVoxel(phys)
			sampleAt(src, movingVoxel, mode, vals)
			out.SetLinear(v, vals)
			if trackValidity {
				if InBounds(src.Geom, movingVoxel) {
					valid.SetLinear(v, []float64{1})
				} else {
					valid.SetLinear(v, []float64{0})
				}
			}
		}
	})
	return out, valid
}

// IdentityResampleField resamples a displacement field u onto newGeom,
// mapping each new voxel through physical space to u's original grid and
// linearly interpolating the vector value there — used when stepping
// from a coarser pyramid level to a finer one (the caller still owns the
// 2x magnitude rescale required by invariant 2 of §3).
func IdentityResampleField(u *ndimage.Image, newGeom *geom.Geometry) *ndimage.Image {
	out := ndimage.New(newGeom, ndimage.Vector, newGeom.D)
	d := newGeom.D
	Parallel(out.NumVoxels(), func(start, end int) {
		vals := make([]float64, u.Channels)
		fidx := make([]float64, d)
		for v := start; v < end; v++ {
			idx := out.MultiIndex(v)
			for a := 0; a < d; a++ {
				fidx[a] = float64(idx[a])
			}
			phys := newGeom.VoxelToPhysical(fidx)
			oldVoxel := u.Geom.PhysicalToVoxel(phys)
			linearSample(u, oldVoxel, vals)
			out.SetLinear(v, vals)
		}
	})
	return out
}
