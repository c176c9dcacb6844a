package geom

import "gonum.org/v1/gonum/mat"

// Convention identifies a right-handed physical coordinate convention.
type Convention int

const (
	// LPS is the internal convention used by most image files: axis 0
	// increases toward Left, axis 1 toward Posterior, axis 2 toward
	// Superior.
	LPS Convention = iota
	// RAS is the convention used by persisted affine matrices: axis 0
	// toward Right, axis 1 toward Anterior, axis 2 toward Superior.
	RAS
)

// lpsRasSign flips the sign of the first two axes in 3-D (and of both
// axes in 2-D); axes beyond the second (e.g. a 4-D time axis) are left
// unchanged, since LPS/RAS disagree only on the anatomical in-plane axes.
func lpsRasSign(d int) []float64 {
	s := make([]float64, d)
	for i := range s {
		if i < 2 {
			s[i] = -1
		} else {
			s[i] = 1
		}
	}
	return s
}

// ConvertPoint converts a physical point between LPS and RAS.
func ConvertPoint(p []float64, from, to Convention) []float64 {
	if from == to {
		return append([]float64(nil), p...)
	}
	sign := lpsRasSign(len(p))
	out := make([]float64, len(p))
	for i := range out {
		out[i] = p[i] * sign[i]
	}
	return out
}

// ConvertVector converts a displacement (free vector, no origin offset)
// between LPS and RAS — the same diagonal sign flip as ConvertPoint,
// since the conversion is linear with no translation component.
func ConvertVector(v []float64, from, to Convention) []float64 {
	return ConvertPoint(v, from, to)
}

// HomogeneousMatrix is a (D+1)x(D+1) affine matrix in homogeneous
// coordinates: the top-left D×D block is the linear part, the last
// column (rows 0..D-1) is the translation, and the last row is
// [0 ... 0 1].
type HomogeneousMatrix struct {
	D    int
	Data *mat.Dense // (D+1)x(D+1)
}

// NewHomogeneous builds a HomogeneousMatrix from a linear D×D matrix and
// a D-vector offset.
func NewHomogeneous(linear []float64, offset []float64) *HomogeneousMatrix {
	d := len(offset)
	data := mat.NewDense(d+1, d+1, nil)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			data.Set(r, c, linear[r*d+c])
		}
		data.Set(r, d, offset[r])
	}
	data.Set(d, d, 1)
	return &HomogeneousMatrix{D: d, Data: data}
}

// Linear extracts the top-left D×D linear block, row-major.
func (h *HomogeneousMatrix) Linear() []float64 {
	out := make([]float64, h.D*h.D)
	for r := 0; r < h.D; r++ {
		for c := 0; c < h.D; c++ {
			out[r*h.D+c] = h.Data.At(r, c)
		}
	}
	return out
}

// Offset extracts the translation column.
func (h *HomogeneousMatrix) Offset() []float64 {
	out := make([]float64, h.D)
	for r := 0; r < h.D; r++ {
		out[r] = h.Data.At(r, h.D)
	}
	return out
}

// Apply maps a physical point through the homogeneous matrix: p' = A*p.
func (h *HomogeneousMatrix) Apply(p []float64) []float64 {
	linear := h.Linear()
	offset := h.Offset()
	out := make([]float64, h.D)
	for r := 0; r < h.D; r++ {
		sum := offset[r]
		for c := 0; c < h.D; c++ {
			sum += linear[r*h.D+c] * p[c]
		}
		out[r] = sum
	}
	return out
}

// Inverse returns A^-1 as a HomogeneousMatrix.
func (h *HomogeneousMatrix) Inverse() (*HomogeneousMatrix, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Data); err != nil {
		return nil, err
	}
	return &HomogeneousMatrix{D: h.D, Data: &inv}, nil
}

// Compose returns h ∘ other, i.e. the matrix that applies other first,
// then h: (h∘other)(p) = h(other(p)).
func (h *HomogeneousMatrix) Compose(other *HomogeneousMatrix) *HomogeneousMatrix {
	var out mat.Dense
	out.Mul(h.Data, other.Data)
	return &HomogeneousMatrix{D: h.D, Data: &out}
}

// ConvertConvention re-expresses a homogeneous matrix given in `from`
// convention physical coordinates as the equivalent matrix in `to`
// convention coordinates: A' = S * A * S^-1, where S is the per-axis
// sign-flip matrix (S^-1 = S since it is a diagonal ±1 matrix, except
// the bottom-right homogeneous 1 stays fixed).
func ConvertConvention(h *HomogeneousMatrix, from, to Convention) *HomogeneousMatrix {
	if from == to {
		return h
	}
	sign := lpsRasSign(h.D)
	s := mat.NewDense(h.D+1, h.D+1, nil)
	for i := 0; i < h.D; i++ {
		s.Set(i, i, sign[i])
	}
	s.Set(h.D, h.D, 1)

	var tmp, out mat.Dense
	tmp.Mul(s, h.Data)
	out.Mul(&tmp, s) // S^-1 == S here
	return &HomogeneousMatrix{D: h.D, Data: &out}
}

// VoxelToRAS converts a voxel-space homogeneous transform (operating on
// voxel indices, LPS-flavoured) to the RAS physical-space matrix stored
// in transform files: A_RAS = S * (O + R*diag(s)*·) ∘ A_voxel ∘ (O +
// R*diag(s)*·)^-1, composed through the geometry's voxel<->LPS map and
// then converted LPS->RAS.
func VoxelToRAS(voxel *HomogeneousMatrix, g *Geometry) *HomogeneousMatrix {
	v2p := voxelToPhysicalMatrix(g)
	p2v, err := v2p.Inverse()
	if err != nil {
		panic("geom: singular voxel-to-physical map: " + err.Error())
	}
	lpsMatrix := v2p.Compose(voxel).Compose(p2v)
	return ConvertConvention(lpsMatrix, LPS, RAS)
}

// RASToVoxel is the inverse of VoxelToRAS.
func RASToVoxel(ras *HomogeneousMatrix, g *Geometry) *HomogeneousMatrix {
	lpsMatrix := ConvertConvention(ras, RAS, LPS)
	v2p := voxelToPhysicalMatrix(g)
	p2v, err := v2p.Inverse()
	if err != nil {
		panic("geom: singular voxel-to-physical map: " + err.Error())
	}
	return p2v.Compose(lpsMatrix).Compose(v2p)
}

// voxelToPhysicalMatrix returns the homogeneous matrix form of
// p = O + R*diag(s)*i, i.e. the linear part R*diag(s) and offset O.
func voxelToPhysicalMatrix(g *Geometry) *HomogeneousMatrix {
	linear := make([]float64, g.D*g.D)
	dir := g.directionMatrix()
	for r := 0; r < g.D; r++ {
		for c := 0; c < g.D; c++ {
			linear[r*g.D+c] = dir.At(r, c) * g.Spacing[c]
		}
	}
	return NewHomogeneous(linear, g.Origin)
}
