package metric

import (
	"math"
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

func rampImage(size []int) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	for v := 0; v < im.NumVoxels(); v++ {
		idx := im.MultiIndex(v)
		var s float64
		for _, c := range idx {
			s += float64(c)
		}
		im.SetLinear(v, []float64{s})
	}
	return im
}

func sameGeomLevel(fixed, moving *ndimage.Image, weight float64) *pyramid.Level {
	return &pyramid.Level{
		Fixed:   fixed,
		Moving:  moving,
		Weights: []float64{weight},
	}
}

func TestSSDZeroForIdenticalImages(t *testing.T) {
	im := rampImage([]int{6, 6})
	level := sameGeomLevel(im, im.Clone(), 1)
	u := ndimage.NewVector(im.Geom)

	value, grad := SSD{}.DenseGradient(level, u, nil)
	if math.Abs(value) > 1e-9 {
		t.Errorf("expected zero SSD for identical images, got %v", value)
	}
	for _, g := range grad.Data {
		if math.Abs(g) > 1e-9 {
			t.Errorf("expected zero gradient for identical images, got %v", g)
		}
	}
}

func TestSSDPositiveForShiftedImages(t *testing.T) {
	fixed := rampImage([]int{6, 6})
	moving := rampImage([]int{6, 6})
	for i := range moving.Data {
		moving.Data[i] += 1
	}
	level := sameGeomLevel(fixed, moving, 1)
	u := ndimage.NewVector(fixed.Geom)

	value, _ := SSD{}.DenseGradient(level, u, nil)
	if value <= 0 {
		t.Errorf("expected positive SSD for offset images, got %v", value)
	}
}

func TestSSDGradientMatchesCentralDifference(t *testing.T) {
	fixed := rampImage([]int{4, 4})
	moving := rampImage([]int{4, 4})
	for i := range moving.Data {
		moving.Data[i] *= 1.3
	}
	level := sameGeomLevel(fixed, moving, 1)
	u := ndimage.NewVector(fixed.Geom)
	for i := range u.Data {
		u.Data[i] = 0.1
	}

	_, maxRelErr := CheckGradient(level, SSD{}, u, 1e-4)
	if maxRelErr > 1e-3 {
		t.Errorf("SSD gradient relative error too large: %v", maxRelErr)
	}
}

func TestSSDAffineGradientAtIdentity(t *testing.T) {
	fixed := rampImage([]int{5, 5})
	moving := rampImage([]int{5, 5})
	level := sameGeomLevel(fixed, moving, 1)
	identity := geom.NewHomogeneous([]float64{1, 0, 0, 1}, []float64{0, 0})

	value, grad := SSD{}.AffineGradient(level, identity)
	if math.Abs(value) > 1e-9 {
		t.Errorf("expected zero SSD at identity for identical images, got %v", value)
	}
	if len(grad) != 6 {
		t.Fatalf("expected 6 affine parameters for D=2, got %d", len(grad))
	}
}
