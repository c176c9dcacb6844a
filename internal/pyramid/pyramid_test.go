package pyramid

import (
	"math"
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

func constantImage(size []int, v float64) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	im.Fill(v)
	return im
}

func TestBuildLevelCountAndFinestIsFullRes(t *testing.T) {
	fixed := constantImage([]int{16, 16}, 1.0)
	moving := constantImage([]int{16, 16}, 2.0)

	p, err := Build([]Pair{{Fixed: fixed, Moving: moving, Weight: 1}}, 3, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 levels, got %d", p.Len())
	}
	finest := p.GetReferenceSpace(2)
	if finest.Size[0] != 16 || finest.Size[1] != 16 {
		t.Errorf("finest level should be full resolution, got %v", finest.Size)
	}
	coarsest := p.GetReferenceSpace(0)
	if coarsest.Size[0] != 4 || coarsest.Size[1] != 4 {
		t.Errorf("coarsest level should be downsampled by 4, got %v", coarsest.Size)
	}
}

func TestDownsampleAveragePreservesConstant(t *testing.T) {
	im := constantImage([]int{10, 10}, 3.5)
	out := downsampleAverage(im, 4)
	for _, v := range out.Data {
		if math.Abs(v-3.5) > 1e-9 {
			t.Errorf("averaging a constant image should preserve its value, got %v", v)
		}
	}
}

func TestBuildRejectsEmptyPairs(t *testing.T) {
	if _, err := Build(nil, 2, DefaultOptions()); err == nil {
		t.Error("expected error for empty pairs")
	}
}

func TestBuildStacksMultiplePairsIntoComposite(t *testing.T) {
	f1 := constantImage([]int{8, 8}, 1.0)
	m1 := constantImage([]int{8, 8}, 1.0)
	f2 := constantImage([]int{8, 8}, 5.0)
	m2 := constantImage([]int{8, 8}, 5.0)

	p, err := Build([]Pair{
		{Fixed: f1, Moving: m1, Weight: 1},
		{Fixed: f2, Moving: m2, Weight: 2},
	}, 1, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	lvl := p.Level(0)
	if lvl.Fixed.Channels != 2 {
		t.Fatalf("expected 2 stacked channels, got %d", lvl.Fixed.Channels)
	}
	if lvl.Weights[0] != 1 || lvl.Weights[1] != 2 {
		t.Errorf("expected per-channel weights [1 2], got %v", lvl.Weights)
	}
}
