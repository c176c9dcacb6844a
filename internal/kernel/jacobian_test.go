package kernel

import (
	"math"
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

func TestJacobianOfZeroFieldIsOne(t *testing.T) {
	g := geom.Identity([]int{8, 8})
	u := ndimage.NewVector(g)

	_, minVal, maxVal := JacobianDeterminant(u)
	if math.Abs(minVal-1) > 1e-9 || math.Abs(maxVal-1) > 1e-9 {
		t.Errorf("identity transform should have Jacobian determinant 1 everywhere, got min=%v max=%v", minVal, maxVal)
	}
}

func TestJacobianOfUniformScaling(t *testing.T) {
	// u(i) = 0.5*i (interior, away from one-sided boundary effects)
	// gives id+u == 1.5*identity, determinant 1.5^D.
	g := geom.Identity([]int{12, 12})
	u := ndimage.NewVector(g)
	for v := 0; v < u.NumVoxels(); v++ {
		idx := u.MultiIndex(v)
		vals := u.AtLinear(v)
		for a := range vals {
			vals[a] = 0.5 * float64(idx[a])
		}
	}
	_, _, maxVal := JacobianDeterminant(u)
	want := 1.5 * 1.5
	if math.Abs(maxVal-want) > 0.05 {
		t.Errorf("expected Jacobian determinant near %v, got max %v", want, maxVal)
	}
}
