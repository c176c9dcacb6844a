// Package geom centralizes the voxel/physical coordinate bookkeeping
// described by the registration engine's data model: every dense buffer
// carries a Geometry (size, origin, spacing, direction cosines), and all
// LPS/RAS conversions are funneled through this package so that solver
// code never touches a raw axis flip.
package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Geometry describes the voxel grid of an N-dimensional image: integer
// size per axis, physical origin, positive spacing, and a D×D direction
// cosine matrix (row-major). The voxel-to-physical map is
//
//	p = Origin + R * diag(Spacing) * i
//
// where R is Direction reshaped to D×D.
type Geometry struct {
	D         int
	Size      []int
	Origin    []float64
	Spacing   []float64
	Direction []float64 // row-major D*D
}

// NewGeometry validates and constructs a Geometry. Spacing entries must
// be strictly positive; Direction must have exactly D*D entries.
func NewGeometry(size []int, origin, spacing, direction []float64) (*Geometry, error) {
	d := len(size)
	if len(origin) != d || len(spacing) != d || len(direction) != d*d {
		return nil, fmt.Errorf("geom: dimension mismatch: size=%d origin=%d spacing=%d direction=%d", d, len(origin), len(spacing), len(direction))
	}
	for axis, s := range spacing {
		if s <= 0 {
			return nil, fmt.Errorf("geom: spacing[%d] = %v must be positive", axis, s)
		}
	}
	for _, n := range size {
		if n <= 0 {
			return nil, fmt.Errorf("geom: size entries must be positive, got %v", size)
		}
	}
	g := &Geometry{
		D:         d,
		Size:      append([]int(nil), size...),
		Origin:    append([]float64(nil), origin...),
		Spacing:   append([]float64(nil), spacing...),
		Direction: append([]float64(nil), direction...),
	}
	return g, nil
}

// Identity returns a Geometry with zero origin, unit spacing, and an
// identity direction matrix — the usual starting point for
// synthetically constructed test images.
func Identity(size []int) *Geometry {
	d := len(size)
	origin := make([]float64, d)
	spacing := make([]float64, d)
	direction := make([]float64, d*d)
	for i := 0; i < d; i++ {
		spacing[i] = 1
		direction[i*d+i] = 1
	}
	g, err := NewGeometry(size, origin, spacing, direction)
	if err != nil {
		// Unreachable: constructed values always satisfy NewGeometry's checks.
		panic(err)
	}
	return g
}

// NumVoxels returns the total voxel count (product of Size).
func (g *Geometry) NumVoxels() int {
	n := 1
	for _, s := range g.Size {
		n *= s
	}
	return n
}

// directionMatrix returns the Direction field as a gonum Dense matrix.
func (g *Geometry) directionMatrix() *mat.Dense {
	return mat.NewDense(g.D, g.D, g.Direction)
}

// VoxelToPhysical maps a (possibly fractional) voxel index to a physical
// point using this geometry's own convention (LPS, internally).
func (g *Geometry) VoxelToPhysical(idx []float64) []float64 {
	r := g.directionMatrix()
	scaled := make([]float64, g.D)
	for i := range scaled {
		scaled[i] = idx[i] * g.Spacing[i]
	}
	var rv mat.VecDense
	rv.MulVec(r, mat.NewVecDense(g.D, scaled))
	out := make([]float64, g.D)
	for i := range out {
		out[i] = g.Origin[i] + rv.AtVec(i)
	}
	return out
}

// PhysicalToVoxel is the inverse of VoxelToPhysical: i = diag(1/s) * R^-1 * (p - O).
func (g *Geometry) PhysicalToVoxel(p []float64) []float64 {
	r := g.directionMatrix()
	diff := make([]float64, g.D)
	for i := range diff {
		diff[i] = p[i] - g.Origin[i]
	}
	var rInv mat.Dense
	if err := rInv.Inverse(r); err != nil {
		// Direction matrices are orthonormal by construction; a singular
		// direction matrix indicates caller-supplied bad data.
		panic(fmt.Sprintf("geom: non-invertible direction matrix: %v", err))
	}
	var rv mat.VecDense
	rv.MulVec(&rInv, mat.NewVecDense(g.D, diff))
	out := make([]float64, g.D)
	for i := range out {
		out[i] = rv.AtVec(i) / g.Spacing[i]
	}
	return out
}

// Clone returns a deep copy of the geometry.
func (g *Geometry) Clone() *Geometry {
	c := *g
	c.Size = append([]int(nil), g.Size...)
	c.Origin = append([]float64(nil), g.Origin...)
	c.Spacing = append([]float64(nil), g.Spacing...)
	c.Direction = append([]float64(nil), g.Direction...)
	return &c
}

// WithSize returns a copy of g with a different voxel grid size, keeping
// origin/spacing/direction (used by the pyramid builder to describe a
// level's geometry before its spacing is rescaled).
func (g *Geometry) WithSize(size []int) *Geometry {
	c := g.Clone()
	c.Size = append([]int(nil), size...)
	return c
}

// Downsample returns the geometry of a level produced by integer
// downsampling with the given per-axis factor: size shrinks by the
// factor (rounded up) and spacing grows by the factor, and the origin
// moves to the physical center of the first factor^D block of fine
// voxels (fine index (factor-1)/2 on each axis), which is where the
// pyramid builder's box-average downsampling places coarse voxel 0.
func (g *Geometry) Downsample(factor int) *Geometry {
	if factor <= 0 {
		panic("geom: downsample factor must be positive")
	}
	size := make([]int, g.D)
	spacing := make([]float64, g.D)
	center := make([]float64, g.D)
	for i := range size {
		size[i] = (g.Size[i] + factor - 1) / factor
		spacing[i] = g.Spacing[i] * float64(factor)
		center[i] = float64(factor-1) / 2
	}
	out, err := NewGeometry(size, g.VoxelToPhysical(center), spacing, g.Direction)
	if err != nil {
		panic(err)
	}
	return out
}
