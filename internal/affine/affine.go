package affine

import (
	"fmt"
	"log/slog"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/pyramid"
)

// Options configures one affine registration run.
type Options struct {
	Method Method
	// MaxEvals gives the per-level function-evaluation budget,
	// coarsest first; a short slice reuses its last entry for the
	// remaining levels, and a nil slice defaults to 200 per level.
	// MethodMayfly does not read it: it always runs 200 iterations.
	MaxEvals []int
	// JitterAmplitude bounds the uniform jitter (scaled space) applied
	// to the identity transform at level 0 when InitialRAS is nil; zero
	// selects the default of 0.4.
	JitterAmplitude float64
	Seed            int64
	InitialRAS      *geom.HomogeneousMatrix
	DebugDeriv      bool
	DebugEps        float64
	// MayflyPopSize is only consulted when Method == MethodMayfly.
	MayflyPopSize int
}

// LevelResult reports the optimized transform and cost at one level.
type LevelResult struct {
	T     *geom.HomogeneousMatrix
	Value float64
}

// Result is the full multi-level affine solve outcome.
type Result struct {
	Levels []LevelResult
	Final  *geom.HomogeneousMatrix // voxel-space transform at the finest level
}

func maxEvalsFor(opts Options, l int) int {
	if len(opts.MaxEvals) == 0 {
		return 200
	}
	if l < len(opts.MaxEvals) {
		return opts.MaxEvals[l]
	}
	return opts.MaxEvals[len(opts.MaxEvals)-1]
}

func buildMinimizer(opts Options) Minimizer {
	switch opts.Method {
	case MethodMayfly:
		popSize := opts.MayflyPopSize
		if popSize <= 0 {
			popSize = 30
		}
		return NewMayflyMinimizer(200, popSize, opts.Seed, 2.0)
	case MethodNelderMead:
		return NewGonumMinimizer(MethodNelderMead)
	default:
		return NewGonumMinimizer(MethodBFGS)
	}
}

func divide(a, s []float64) []float64 {
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] / s[i]
	}
	return out
}

// Solve runs the affine solver over every level of pyr, coarsest to
// finest, re-anchoring the transform through its RAS representation
// between levels, per §4.6.
func Solve(pyr *pyramid.Pyramid, m metric.Metric, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pyr.Len() == 0 {
		return nil, fmt.Errorf("affine: pyramid has no levels")
	}

	minimizer := buildMinimizer(opts)
	amplitude := opts.JitterAmplitude
	if amplitude == 0 {
		amplitude = 0.4
	}

	var voxelT *geom.HomogeneousMatrix
	result := &Result{Levels: make([]LevelResult, pyr.Len())}

	for l := 0; l < pyr.Len(); l++ {
		level := pyr.Level(l)
		refGeom := level.Fixed.Geom
		d := refGeom.D
		scale := BuildScaling(refGeom)

		switch {
		case l == 0 && opts.InitialRAS != nil:
			voxelT = geom.RASToVoxel(opts.InitialRAS, refGeom)
		case l == 0:
			voxelT = ParamsToMatrix(JitterIdentity(d, scale, amplitude, opts.Seed), d)
		default:
			ras := geom.VoxelToRAS(voxelT, pyr.GetReferenceSpace(l-1))
			voxelT = geom.RASToVoxel(ras, refGeom)
		}
		x0 := ScaleParams(MatrixToParams(voxelT), scale)

		cost := func(xs []float64) float64 {
			raw := UnscaleParams(xs, scale)
			value, _ := m.AffineGradient(level, ParamsToMatrix(raw, d))
			return value
		}
		grad := func(xs []float64) []float64 {
			raw := UnscaleParams(xs, scale)
			_, g := m.AffineGradient(level, ParamsToMatrix(raw, d))
			return divide(g, scale)
		}

		if opts.DebugDeriv {
			eps := opts.DebugEps
			if eps == 0 {
				eps = 1e-4
			}
			relErr := CheckDerivative(cost, grad, x0, eps)
			logger.Info("affine derivative check", "level", l, "max_rel_err", relErr)
		}

		var xBest []float64
		var fBest float64
		if opts.Method == MethodMayfly {
			xBest, fBest = minimizer.Run(cost, nil, x0, maxEvalsFor(opts, l))
		} else {
			xBest, fBest = minimizer.Run(cost, grad, x0, maxEvalsFor(opts, l))
		}

		voxelT = ParamsToMatrix(UnscaleParams(xBest, scale), d)
		logger.Info("affine level complete", "level", l, "value", fBest)
		result.Levels[l] = LevelResult{T: voxelT, Value: fBest}
	}

	result.Final = voxelT
	return result, nil
}
