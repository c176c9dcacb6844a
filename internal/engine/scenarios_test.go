package engine

import (
	"math"
	"testing"

	"github.com/CBICA/greedy/internal/affine"
	"github.com/CBICA/greedy/internal/brute"
	"github.com/CBICA/greedy/internal/deform"
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/CBICA/greedy/internal/xform"
)

// S1: SSD, 2-D, identical inputs. The deformable solver should leave
// the field near zero and never increase the metric.
func TestScenarioS1IdenticalInputsStayNearZero(t *testing.T) {
	blob := gaussianBlob([]int{64, 64}, []float64{32, 32}, 8)
	pairs := []pyramid.Pair{{Fixed: blob, Moving: blob, Weight: 1}}
	pyr, err := pyramid.Build(pairs, 2, pyramid.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	opts := deform.Options{
		Iterations: []int{20, 20},
		StepEps:    0.5,
		StepMode:   kernel.Const,
		PreSigma:   []float64{1, 1},
		PostSigma:  []float64{0.5, 0.5},
	}
	result, err := deform.Solve(pyr, metric.SSD{}, nil, opts, nil)
	if err != nil {
		t.Fatal(err)
	}

	if kernel.MaxNorm(result.Final) >= 1e-3 {
		t.Errorf("expected near-zero field for identical inputs, got max norm %v", kernel.MaxNorm(result.Final))
	}
	for l := 1; l < len(result.Levels); l++ {
		if result.Levels[l].FinalValue > result.Levels[l-1].FinalValue+1e-6 {
			t.Errorf("metric increased across levels: %v -> %v", result.Levels[l-1].FinalValue, result.Levels[l].FinalValue)
		}
	}
}

// S2: affine recovery. moving is fixed resampled through a known
// voxel-space translation, moving(i) = fixed(i+(3,-2)); the solver's
// fixed-to-moving map is then i-(3,-2), which it should recover closely.
func TestScenarioS2RecoversKnownTranslation(t *testing.T) {
	fixed := gaussianBlob([]int{48, 48}, []float64{24, 24}, 6)
	voxelT := geom.NewHomogeneous([]float64{1, 0, 0, 1}, []float64{3, -2})
	moving := resampleThroughVoxelMatrix(fixed, voxelT)

	pairs := []pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}
	pyr, err := pyramid.Build(pairs, 2, pyramid.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	result, err := affine.Solve(pyr, metric.SSD{}, affine.Options{Method: affine.MethodBFGS, MaxEvals: []int{400, 400}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	offset := result.Final.Offset()
	if math.Abs(offset[0]-(-3)) > 0.5 || math.Abs(offset[1]-2) > 0.5 {
		t.Errorf("recovered translation %v too far from expected [-3 2]", offset)
	}
}

// S3: NCC contrast invariance. A linear intensity rescale of the moving
// image of an unshifted blob should leave the deformable field small,
// since NCC is invariant to affine intensity transforms.
func TestScenarioS3NCCIsContrastInvariant(t *testing.T) {
	fixed := gaussianBlob([]int{48, 48}, []float64{24, 24}, 6)
	rescaled := scaleIntensity(fixed, 2, 5)

	pairs := []pyramid.Pair{{Fixed: fixed, Moving: rescaled, Weight: 1}}
	opts := pyramid.DefaultOptions()
	opts.NoiseForNCC = true
	pyr, err := pyramid.Build(pairs, 2, opts)
	if err != nil {
		t.Fatal(err)
	}

	solveOpts := deform.Options{
		Iterations: []int{20, 20},
		StepEps:    0.5,
		StepMode:   kernel.Const,
		PreSigma:   []float64{1, 1},
		PostSigma:  []float64{0.5, 0.5},
	}
	result, err := deform.Solve(pyr, metric.NewNCC(3), nil, solveOpts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if kernel.MaxNorm(result.Final) >= 0.5 {
		t.Errorf("expected small field under a pure contrast rescale, got max norm %v", kernel.MaxNorm(result.Final))
	}
}

// S4: brute-force recovers a single-pixel constant shift.
func TestScenarioS4BruteForceRecoversConstantShift(t *testing.T) {
	fixed := singleBrightPixel([]int{32, 32}, []int{10, 10})
	moving := singleBrightPixel([]int{32, 32}, []int{12, 9})

	pairs := []pyramid.Pair{{Fixed: fixed, Moving: moving, Weight: 1}}
	pyr, err := pyramid.Build(pairs, 1, pyramid.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	field, err := brute.Solve(pyr.Level(0), metric.NewNCC(2), brute.Options{Radius: []int{4, 4}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got := field.At([]int{10, 10})
	if got[0] != 2 || got[1] != -1 {
		t.Errorf("expected recovered offset [2 -1] at the bright pixel, got %v", got)
	}
}

// S5: chain composition order. Chaining warp A then warp B should agree
// with independently composing the two fields through kernel.Compose
// and doubling the result (the same per-entry rule ComposeChain applies
// to a single field entry), to within a small residual that only grows
// from the nonlinear cross-terms of that doubling for non-constant
// fields — the two are not expected to match bit-for-bit.
func TestScenarioS5ChainCompositionMatchesPrecomposed(t *testing.T) {
	g := geom.Identity([]int{20, 20})
	a := linearRampField(g, 0, 0.4)
	b := linearRampField(g, 1, 0.4)

	chained, err := xform.ComposeChain(g, []xform.ChainEntry{
		{Kind: xform.KindField, Exponent: 1, Field: a},
		{Kind: xform.KindField, Exponent: 1, Field: b},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Independently composed single equivalent of "apply A then B",
	// doubled the way a single chain entry is — computed directly with
	// kernel.Compose/scaleField, without going back through ComposeChain.
	expected := scaleField(kernel.Compose(b, a), 2)

	diff := ndimage.Like(chained)
	for v := 0; v < diff.NumVoxels(); v++ {
		cv := chained.AtLinear(v)
		ev := expected.AtLinear(v)
		dv := diff.AtLinear(v)
		for c := range dv {
			dv[c] = cv[c] - ev[c]
		}
	}
	if kernel.MaxNorm(diff) > 0.05 {
		t.Errorf("chain composition diverged from the precomposed field: max diff %v", kernel.MaxNorm(diff))
	}
}

// S6: inverse warp. A field built from a small affine should invert to
// within 0.05 voxels max-norm residual.
func TestScenarioS6InverseWarpConverges(t *testing.T) {
	g := geom.Identity([]int{24, 24})
	voxelT := geom.NewHomogeneous([]float64{1, 0.02, -0.01, 1}, []float64{0.8, -0.4})
	u := kernel.DisplacementFromAffine(g, voxelT)

	v, err := deform.InvertDisplacement(u, 3, 20, 1e-6)
	if err != nil {
		t.Logf("inversion warning (non-fatal): %v", err)
	}

	resid := kernel.Compose(u, v) // v(i) + u(i+v(i)), zero for an exact inverse
	if kernel.MaxNorm(resid) >= 0.05 {
		t.Errorf("inverse residual too large: %v", kernel.MaxNorm(resid))
	}
}
