// Package deform implements the greedy deformable solver (C5): a
// fixed-point gradient-descent loop that grows a displacement field
// level by level, regularized by pre- and post-update Gaussian
// smoothing, following §4.5.
package deform

import (
	"fmt"
	"log/slog"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
)

// Dumper receives the running displacement field periodically during
// solving, per the `-dump-moving`/`-dump-freq` CLI options; the core
// never performs I/O itself.
type Dumper interface {
	DumpLevel(level, iter int, u *ndimage.Image)
}

type noopDumper struct{}

func (noopDumper) DumpLevel(int, int, *ndimage.Image) {}

// NoopDumper is a Dumper that discards every call, the CLI's default.
var NoopDumper Dumper = noopDumper{}

// Options configures one deformable registration run.
type Options struct {
	// Iterations gives the per-level iteration budget, coarsest first;
	// must have the same length as the pyramid.
	Iterations []int
	// StepEps and StepMode implement the §4.2 step-size policy applied
	// to the smoothed gradient before it is composed into u.
	StepEps  float64
	StepMode kernel.ScaleMode
	// PreSigma and PostSigma are the per-axis smoothing sigmas applied
	// before and after the fixed-point update, in the unit selected by
	// SigmaInMM (converted to voxel units per level via the level's own
	// spacing when true).
	PreSigma  []float64
	PostSigma []float64
	SigmaInMM bool
	// GradientMask, if non-nil, must share the finest level's geometry;
	// it is resampled to each level via nearest-neighbor before being
	// passed to the metric as a multiplicative gradient weight.
	GradientMask *ndimage.Image
	Dumper       Dumper
	DumpFreq     int
}

// LevelResult reports the state at the end of one pyramid level.
type LevelResult struct {
	U                      *ndimage.Image
	JacobianMin, JacobianMax float64
	FinalValue             float64
}

// Result is the full multi-level solve outcome.
type Result struct {
	Levels []LevelResult
	Final  *ndimage.Image // displacement field at the finest level
}

// Solve runs the greedy deformable loop over every level of pyr,
// optionally seeded from initialAffine (RAS, physical space) at level 0.
func Solve(pyr *pyramid.Pyramid, m metric.Metric, initialAffine *geom.HomogeneousMatrix, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Iterations) != pyr.Len() {
		return nil, fmt.Errorf("deform: Iterations has length %d, want %d (one per level)", len(opts.Iterations), pyr.Len())
	}

	var u *ndimage.Image
	result := &Result{Levels: make([]LevelResult, pyr.Len())}

	for l := 0; l < pyr.Len(); l++ {
		level := pyr.Level(l)
		refGeom := level.Fixed.Geom

		switch {
		case l == 0 && initialAffine == nil:
			u = ndimage.NewVector(refGeom)
		case l == 0:
			voxelT := geom.RASToVoxel(initialAffine, refGeom)
			u = kernel.DisplacementFromAffine(refGeom, voxelT)
		default:
			u = kernel.IdentityResampleField(u, refGeom)
			kernel.ScaleInPlace(u, 2.0)
		}

		mask := resampleMask(opts.GradientMask, refGeom)
		preSigma := resolveSigma(opts.PreSigma, refGeom, opts.SigmaInMM)
		postSigma := resolveSigma(opts.PostSigma, refGeom, opts.SigmaInMM)

		var lastValue float64
		iterations := opts.Iterations[l]
		for iter := 0; iter < iterations; iter++ {
			value, g := m.DenseGradient(level, u, mask)
			lastValue = value

			gSmooth := kernel.GaussianSmoothBorder(g, preSigma)
			kernel.NormalizeMaxLength(gSmooth, opts.StepEps, opts.StepMode)
			// g is ∂value/∂u and every metric is minimized, so step against it.
			kernel.ScaleInPlace(gSmooth, -1)

			composed := kernel.Compose(u, gSmooth)
			kernel.AddInPlace(composed, gSmooth)
			u = kernel.GaussianSmoothBorder(composed, postSigma)

			logger.Info("deform iteration", "level", l, "iter", iter, "metric", m.Name(), "value", value)

			dumper := opts.Dumper
			if dumper == nil {
				dumper = NoopDumper
			}
			if opts.DumpFreq > 0 && iter%opts.DumpFreq == 0 {
				dumper.DumpLevel(l, iter, u)
			}
		}

		det, jmin, jmax := kernel.JacobianDeterminant(u)
		_ = det
		logger.Info("deform level complete", "level", l, "jacobian_min", jmin, "jacobian_max", jmax)

		result.Levels[l] = LevelResult{U: u.Clone(), JacobianMin: jmin, JacobianMax: jmax, FinalValue: lastValue}
	}

	result.Final = u
	return result, nil
}

// resolveSigma converts sigma from millimeters to voxel units per axis
// using g's spacing when inMM is set; a nil sigma becomes an all-zero
// sigma of length g.D, which GaussianSmoothBorder treats as "no
// smoothing" on every axis.
func resolveSigma(sigma []float64, g *geom.Geometry, inMM bool) []float64 {
	if sigma == nil {
		return make([]float64, g.D)
	}
	if !inMM {
		return sigma
	}
	return kernel.VoxelSigma(sigma, g.Spacing)
}

// resampleMask resamples a finest-level gradient mask down to g via
// nearest-neighbor, or returns nil if mask is nil.
func resampleMask(mask *ndimage.Image, g *geom.Geometry) *ndimage.Image {
	if mask == nil {
		return nil
	}
	if sameSize(mask.Geom, g) {
		return mask
	}
	return kernel.ResamplePhysical(mask, g, nil, kernel.Nearest)
}

func sameSize(a, b *geom.Geometry) bool {
	if a.D != b.D {
		return false
	}
	for i := range a.Size {
		if a.Size[i] != b.Size[i] {
			return false
		}
	}
	return true
}
