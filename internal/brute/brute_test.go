package brute

import (
	"testing"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

func shiftedBlock(size []int, shift int) *ndimage.Image {
	g := geom.Identity(size)
	im := ndimage.NewScalar(g)
	for v := 0; v < im.NumVoxels(); v++ {
		idx := im.MultiIndex(v)
		if idx[0]-shift >= 4 && idx[0]-shift < 8 && idx[1] >= 4 && idx[1] < 8 {
			im.SetLinear(v, []float64{1})
		}
	}
	return im
}

func TestSolveRejectsMismatchedRadiusLength(t *testing.T) {
	fixed := shiftedBlock([]int{16, 16}, 0)
	moving := shiftedBlock([]int{16, 16}, 0)
	pyr, _ := pyramid.Build([]pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}, 1, pyramid.DefaultOptions())

	_, err := Solve(pyr.Level(0), metric.NewNCC(1), Options{Radius: []int{2}}, nil)
	if err == nil {
		t.Error("expected error for radius/dimensionality mismatch")
	}
}

func TestSolveRecoversConstantShift(t *testing.T) {
	fixed := shiftedBlock([]int{16, 16}, 0)
	moving := shiftedBlock([]int{16, 16}, 3)
	pyr, err := pyramid.Build([]pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}, 1, pyramid.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	field, err := Solve(pyr.Level(0), metric.NewNCC(2), Options{Radius: []int{4, 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A voxel whose patch window spans the fixed block's edges should
	// recover the offset that best aligns the moving block's matching
	// edge pattern.
	edge := field.At([]int{6, 6})
	if edge[0] != 3 || edge[1] != 0 {
		t.Errorf("expected recovered offset [3 0] at block edge, got %v", edge)
	}
}
