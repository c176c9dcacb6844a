// Package brute implements the exhaustive constant-offset NCC solver
// (C7): every integer offset within a per-axis search radius is scored
// voxel-by-voxel, and the best-scoring offset is retained per voxel,
// per §4.7. Only NCC is supported.
package brute

import (
	"log/slog"

	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/CBICA/greedy/internal/rerr"
)

// Options configures the exhaustive search.
type Options struct {
	// Radius gives the per-axis integer search half-width; the scanned
	// window is (2*Radius[a]+1) wide along axis a.
	Radius []int
}

// Solve scans every integer offset within opts.Radius and returns the
// per-voxel best-scoring discrete displacement field. Memory use is
// bounded to two running buffers (best metric, best offset) plus two
// per-candidate scratch buffers (the constant-offset field and its
// value map), regardless of search radius.
func Solve(level *pyramid.Level, m metric.NCC, opts Options, logger *slog.Logger) (*ndimage.Image, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := level.Fixed.Geom.D
	if len(opts.Radius) != d {
		return nil, &rerr.ConfigError{What: "brute-force radius length must match image dimensionality"}
	}

	bestMetric := ndimage.NewScalar(level.Fixed.Geom)
	for i := range bestMetric.Data {
		bestMetric.Data[i] = negInf
	}
	bestOffset := ndimage.NewVector(level.Fixed.Geom)

	candidates := 1
	for _, r := range opts.Radius {
		candidates *= 2*r + 1
	}
	logger.Info("brute-force search starting", "candidates", candidates)

	offset := make([]int, d)
	count := 0
	var scan func(axis int)
	scan = func(axis int) {
		if axis == d {
			evaluate(level, m, offset, bestMetric, bestOffset)
			count++
			return
		}
		for offset[axis] = -opts.Radius[axis]; offset[axis] <= opts.Radius[axis]; offset[axis]++ {
			scan(axis + 1)
		}
	}
	scan(0)

	logger.Info("brute-force search complete", "candidates_evaluated", count)
	return bestOffset, nil
}

const negInf = -1e300

func evaluate(level *pyramid.Level, m metric.NCC, offset []int, bestMetric, bestOffset *ndimage.Image) {
	d := level.Fixed.Geom.D
	u := ndimage.NewVector(level.Fixed.Geom)
	disp := make([]float64, d)
	for a, o := range offset {
		disp[a] = float64(o)
	}
	for v := 0; v < u.NumVoxels(); v++ {
		u.SetLinear(v, disp)
	}

	valueMap := m.ValueMap(level, u)
	for v := 0; v < valueMap.NumVoxels(); v++ {
		if valueMap.Data[v] > bestMetric.Data[v] {
			bestMetric.Data[v] = valueMap.Data[v]
			bestOffset.SetLinear(v, disp)
		}
	}
}
