package metric

import (
	"math"
	"math/rand"
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

func noisyImage(size []int, seed int64) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	rng := rand.New(rand.NewSource(seed))
	for v := 0; v < im.NumVoxels(); v++ {
		im.SetLinear(v, []float64{rng.Float64()})
	}
	return im
}

func TestNCCIsNearOptimalForIdenticalImages(t *testing.T) {
	im := noisyImage([]int{10, 10}, 1)
	level := sameGeomLevel(im, im.Clone(), 1)
	u := ndimage.NewVector(im.Geom)

	metric := NewNCC(2)
	value, grad := metric.DenseGradient(level, u, nil)
	if value > -0.9*float64(im.NumVoxels()) {
		t.Errorf("expected near-perfect correlation for identical images, got %v", value)
	}
	if len(grad.Data) != im.NumVoxels()*im.Geom.D {
		t.Fatalf("unexpected gradient field shape")
	}
}

func TestNCCWorseForUncorrelatedImages(t *testing.T) {
	fixed := noisyImage([]int{10, 10}, 1)
	moving := noisyImage([]int{10, 10}, 2)
	level := sameGeomLevel(fixed, moving, 1)
	identicalLevel := sameGeomLevel(fixed, fixed.Clone(), 1)
	u := ndimage.NewVector(fixed.Geom)

	metric := NewNCC(2)
	uncorrelated, _ := metric.DenseGradient(level, u, nil)
	identical, _ := metric.DenseGradient(identicalLevel, u, nil)
	if uncorrelated >= identical {
		t.Errorf("expected uncorrelated NCC value (%v) to be worse (less negative) than identical (%v)", uncorrelated, identical)
	}
}

func TestNCCAffineGradientHasNoNaN(t *testing.T) {
	fixed := noisyImage([]int{8, 8}, 3)
	moving := noisyImage([]int{8, 8}, 4)
	level := sameGeomLevel(fixed, moving, 1)
	identity := geom.NewHomogeneous([]float64{1, 0, 0, 1}, []float64{0, 0})

	value, grad := NewNCC(2).AffineGradient(level, identity)
	if math.IsNaN(value) {
		t.Fatal("NCC affine value is NaN")
	}
	for i, g := range grad {
		if math.IsNaN(g) {
			t.Fatalf("NCC affine gradient component %d is NaN", i)
		}
	}
}
