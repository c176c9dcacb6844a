package kernel

import (
	"math"
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

func TestResampleZeroDisplacementIsIdentity(t *testing.T) {
	g := geom.Identity([]int{8, 8})
	src := ndimage.NewScalar(g)
	for v := 0; v < src.NumVoxels(); v++ {
		src.Data[v] = float64(v)
	}
	u := ndimage.NewVector(g) // zero field

	out := ResampleByDisplacement(src, u, Linear)
	for i := range src.Data {
		if math.Abs(out.Data[i]-src.Data[i]) > 1e-9 {
			t.Fatalf("zero displacement should reproduce source at %d: got %v want %v", i, out.Data[i], src.Data[i])
		}
	}
}

func TestLinearSampleMidpoint(t *testing.T) {
	g := geom.Identity([]int{4, 4})
	im := ndimage.NewScalar(g)
	im.Set([]int{1, 1}, []float64{0})
	im.Set([]int{2, 1}, []float64{10})

	out := make([]float64, 1)
	linearSample(im, []float64{1.5, 1}, out)
	if math.Abs(out[0]-5) > 1e-9 {
		t.Errorf("expected midpoint interpolation 5, got %v", out[0])
	}
}

func TestIdentityResampleFieldPreservesConstantDisplacement(t *testing.T) {
	coarse := geom.Identity([]int{8, 8})
	u := ndimage.NewVector(coarse)
	for v := 0; v < u.NumVoxels(); v++ {
		vals := u.AtLinear(v)
		vals[0], vals[1] = 1.0, -2.0
	}

	fine := coarse.WithSize([]int{16, 16})
	fine.Spacing = []float64{0.5, 0.5}

	resampled := IdentityResampleField(u, fine)
	for v := 2; v < resampled.NumVoxels()-2; v++ {
		vals := resampled.AtLinear(v)
		if math.Abs(vals[0]-1.0) > 1e-6 || math.Abs(vals[1]+2.0) > 1e-6 {
			t.Fatalf("constant field should resample unchanged, got %v", vals)
		}
	}
}
