package deform

import (
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

func blockImage(size []int, lo, hi []int) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	for v := 0; v < im.NumVoxels(); v++ {
		idx := im.MultiIndex(v)
		inside := true
		for a, c := range idx {
			if c < lo[a] || c >= hi[a] {
				inside = false
				break
			}
		}
		if inside {
			im.SetLinear(v, []float64{1})
		}
	}
	return im
}

func TestSolveReducesSSDOverIterations(t *testing.T) {
	fixed := blockImage([]int{16, 16}, []int{4, 4}, []int{12, 12})
	moving := blockImage([]int{16, 16}, []int{6, 6}, []int{14, 14})

	pyr, err := pyramid.Build([]pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}, 2, pyramid.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{
		Iterations: []int{3, 3},
		StepEps:    0.5,
		StepMode:   kernel.Scale,
		PreSigma:   []float64{1, 1},
		PostSigma:  []float64{0.5, 0.5},
	}

	result, err := Solve(pyr, metric.SSD{}, nil, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Levels) != 2 {
		t.Fatalf("expected 2 level results, got %d", len(result.Levels))
	}

	initialValue, _ := metric.SSD{}.DenseGradient(pyr.Level(1), ndimage.NewVector(pyr.GetReferenceSpace(1)), nil)
	finalLevel := result.Levels[1]
	if finalLevel.FinalValue >= initialValue {
		t.Errorf("expected SSD to decrease: initial=%v final=%v", initialValue, finalLevel.FinalValue)
	}
}

func TestSolveRejectsMismatchedIterationLength(t *testing.T) {
	fixed := blockImage([]int{8, 8}, []int{2, 2}, []int{6, 6})
	moving := fixed.Clone()
	pyr, _ := pyramid.Build([]pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}, 2, pyramid.DefaultOptions())

	_, err := Solve(pyr, metric.SSD{}, nil, Options{Iterations: []int{1}}, nil)
	if err == nil {
		t.Error("expected error for mismatched Iterations length")
	}
}

func TestInvertDisplacementRecoversNearZeroField(t *testing.T) {
	g := geom.Identity([]int{8, 8})
	u := ndimage.NewVector(g)
	for v := 0; v < u.NumVoxels(); v++ {
		u.SetLinear(v, []float64{0.2, -0.1})
	}

	v, err := InvertDisplacement(u, 3, 20, 1e-6)
	if err != nil {
		t.Fatalf("expected convergence, got error: %v", err)
	}

	composed := kernel.Compose(u, v) // v(i) + u(i+v(i)), zero for an exact inverse
	resid := kernel.MaxNorm(composed)
	if resid > 1e-3 {
		t.Errorf("inverse residual too large: %v", resid)
	}
}
