// Package ndimage implements the dense N-D buffer primitives (C1):
// scalar, vector and composite (multi-channel) images sharing a single
// geometry descriptor, with the tight per-voxel access patterns the
// kernel library's inner loops depend on — contiguous row-major
// storage, axis 0 fastest, channel count fixed at construction.
package ndimage

import "github.com/CBICA/greedy/internal/geom"

// Kind distinguishes how an Image's channels should be interpreted.
type Kind int

const (
	// Scalar images carry one float per voxel.
	Scalar Kind = iota
	// Vector images carry D floats per voxel, a displacement in voxel
	// units unless stated otherwise.
	Vector
	// Composite images carry K floats per voxel, one per stacked input
	// channel.
	Composite
)

// Image is a dense buffer over the voxel grid described by Geom, with
// Channels floats stored per voxel. Data is laid out voxel-major,
// channel-minor: the value at voxel with linear index `v` occupies
// Data[v*Channels : v*Channels+Channels]. Voxel linearization runs axis
// 0 fastest: lin = i0 + i1*Size[0] + i2*Size[0]*Size[1] + ...
type Image struct {
	Geom     *geom.Geometry
	Kind     Kind
	Channels int
	Data     []float64
}

// New allocates a zero-filled image with the given geometry, kind and
// channel count.
func New(g *geom.Geometry, kind Kind, channels int) *Image {
	return &Image{
		Geom:     g,
		Kind:     kind,
		Channels: channels,
		Data:     make([]float64, g.NumVoxels()*channels),
	}
}

// NewScalar allocates a single-channel scalar image.
func NewScalar(g *geom.Geometry) *Image { return New(g, Scalar, 1) }

// NewVector allocates a D-channel displacement field over g.
func NewVector(g *geom.Geometry) *Image { return New(g, Vector, g.D) }

// NewComposite allocates a K-channel composite image over g.
func NewComposite(g *geom.Geometry, channels int) *Image { return New(g, Composite, channels) }

// Like allocates a new zero-filled image sharing src's geometry, kind
// and channel count.
func Like(src *Image) *Image { return New(src.Geom, src.Kind, src.Channels) }

// NumVoxels returns the number of voxels (not counting channels).
func (im *Image) NumVoxels() int { return im.Geom.NumVoxels() }

// LinearIndex converts a multi-index (axis 0 first) to a voxel-linear
// index, axis 0 fastest.
func (im *Image) LinearIndex(idx []int) int {
	lin := 0
	stride := 1
	for axis, n := range im.Geom.Size {
		lin += idx[axis] * stride
		stride *= n
	}
	return lin
}

// MultiIndex converts a voxel-linear index back to a multi-index.
func (im *Image) MultiIndex(lin int) []int {
	idx := make([]int, im.Geom.D)
	for axis, n := range im.Geom.Size {
		idx[axis] = lin % n
		lin /= n
	}
	return idx
}

// InBounds reports whether a multi-index lies within the voxel grid.
func (im *Image) InBounds(idx []int) bool {
	for axis, n := range im.Geom.Size {
		if idx[axis] < 0 || idx[axis] >= n {
			return false
		}
	}
	return true
}

// At returns a view (not a copy) of the channel values at the given
// multi-index.
func (im *Image) At(idx []int) []float64 {
	lin := im.LinearIndex(idx)
	return im.AtLinear(lin)
}

// AtLinear returns a view of the channel values at a voxel-linear index.
func (im *Image) AtLinear(lin int) []float64 {
	o := lin * im.Channels
	return im.Data[o : o+im.Channels]
}

// Set copies val into the channel slot at the given multi-index.
func (im *Image) Set(idx []int, val []float64) {
	copy(im.At(idx), val)
}

// SetLinear copies val into the channel slot at a voxel-linear index.
func (im *Image) SetLinear(lin int, val []float64) {
	copy(im.AtLinear(lin), val)
}

// Fill sets every channel of every voxel to v.
func (im *Image) Fill(v float64) {
	for i := range im.Data {
		im.Data[i] = v
	}
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := &Image{Geom: im.Geom, Kind: im.Kind, Channels: im.Channels, Data: make([]float64, len(im.Data))}
	copy(out.Data, im.Data)
	return out
}

// CopyFrom overwrites im's data with src's, panicking on shape mismatch.
func (im *Image) CopyFrom(src *Image) {
	if len(im.Data) != len(src.Data) {
		panic("ndimage: CopyFrom shape mismatch")
	}
	copy(im.Data, src.Data)
}

// PhysicalPoint returns the physical-space point of a multi-index under
// im's geometry.
func (im *Image) PhysicalPoint(idx []int) []float64 {
	f := make([]float64, len(idx))
	for i, v := range idx {
		f[i] = float64(v)
	}
	return im.Geom.VoxelToPhysical(f)
}
