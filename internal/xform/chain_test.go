package xform

import (
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

func constantField(g *geom.Geometry, c []float64) *ndimage.Image {
	f := ndimage.NewVector(g)
	for v := 0; v < f.NumVoxels(); v++ {
		f.SetLinear(v, c)
	}
	return f
}

func TestComposeChainSingleConstantFieldDoublesIt(t *testing.T) {
	g := geom.Identity([]int{4, 4})
	c := []float64{1, -2}
	entries := []ChainEntry{{Kind: KindField, Exponent: 1, Field: constantField(g, c)}}

	u, err := ComposeChain(g, entries, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := u.At([]int{2, 2})
	want := []float64{2 * c[0], 2 * c[1]}
	for a := range want {
		if got[a] != want[a] {
			t.Errorf("axis %d: got %v want %v", a, got[a], want[a])
		}
	}
}

func TestComposeChainTwoConstantFieldsSum(t *testing.T) {
	g := geom.Identity([]int{4, 4})
	c1 := []float64{1, 0}
	c2 := []float64{0, 3}
	entries := []ChainEntry{
		{Kind: KindField, Exponent: 1, Field: constantField(g, c1)},
		{Kind: KindField, Exponent: 1, Field: constantField(g, c2)},
	}

	u, err := ComposeChain(g, entries, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := u.At([]int{1, 1})
	want := []float64{2 * (c1[0] + c2[0]), 2 * (c1[1] + c2[1])}
	for a := range want {
		if got[a] != want[a] {
			t.Errorf("axis %d: got %v want %v", a, got[a], want[a])
		}
	}
}

func TestComposeChainAffineTranslationAlongUnflippedAxis(t *testing.T) {
	g := geom.Identity([]int{4, 4, 4})
	ras := geom.NewHomogeneous([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, []float64{0, 0, 5})
	entries := []ChainEntry{{Kind: KindAffine, Exponent: 1, Affine: ras}}

	u, err := ComposeChain(g, entries, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := u.At([]int{1, 1, 1})
	if got[2] != 5 {
		t.Errorf("expected axis-2 displacement of 5 (unflipped between LPS/RAS), got %v", got)
	}
}

func TestComposeChainAffineThenItsInverseCancelsToIdentity(t *testing.T) {
	g := geom.Identity([]int{8, 8, 8})
	ras := geom.NewHomogeneous([]float64{1, 0.1, 0, 0, 1, 0, 0, 0, 1.05}, []float64{2, -1, 3})
	entries := []ChainEntry{
		{Kind: KindAffine, Exponent: 1, Affine: ras},
		{Kind: KindAffine, Exponent: -1, Affine: ras},
	}

	u, err := ComposeChain(g, entries, nil)
	if err != nil {
		t.Fatal(err)
	}
	for v := 0; v < u.NumVoxels(); v++ {
		for _, val := range u.AtLinear(v) {
			if val < -1e-9 || val > 1e-9 {
				t.Fatalf("expected forward-then-inverse affine chain to cancel to identity, got %v at voxel %d", u.AtLinear(v), v)
			}
		}
	}
}

func TestComposeChainRejectsFailingAffineInverse(t *testing.T) {
	g := geom.Identity([]int{4, 4})
	singular := geom.NewHomogeneous([]float64{0, 0, 0, 0}, []float64{0, 0})
	entries := []ChainEntry{{Kind: KindAffine, Exponent: -1, Affine: singular}}

	if _, err := ComposeChain(g, entries, nil); err == nil {
		t.Error("expected error composing an uninvertible affine entry")
	}
}
