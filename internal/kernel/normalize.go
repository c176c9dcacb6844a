package kernel

import (
	"math"

	"github.com/CBICA/greedy/internal/ndimage"
)

// ScaleMode selects the step-size policy applied to a smoothed gradient
// field before it is composed into the running displacement estimate.
type ScaleMode int

const (
	// Const leaves the field untouched.
	Const ScaleMode = iota
	// Scale always rescales so the max Euclidean norm equals eps.
	Scale
	// ScaleDown rescales only if the max Euclidean norm exceeds eps.
	ScaleDown
)

// MaxNorm returns the maximum per-voxel Euclidean norm of a D-channel
// vector field, computed as a deterministic parallel reduction (worker
// partials combined in worker-index order via math.Max, which is
// associative, so the result does not depend on the thread count).
func MaxNorm(field *ndimage.Image) float64 {
	d := field.Channels
	return PartialFloat64(field.NumVoxels(), 0, func(start, end int, acc float64) float64 {
		best := 0.0
		for v := start; v < end; v++ {
			vals := field.AtLinear(v)
			sum := 0.0
			for c := 0; c < d; c++ {
				sum += vals[c] * vals[c]
			}
			n := math.Sqrt(sum)
			if n > best {
				best = n
			}
		}
		return best
	}, math.Max)
}

// NormalizeMaxLength applies the step-size policy described in §4.2:
// SCALEDOWN multiplies by eps/M only if M > eps; SCALE always multiplies
// by eps/M; CONST is a no-op. field is modified in place. Returns the
// max norm M observed before scaling.
func NormalizeMaxLength(field *ndimage.Image, eps float64, mode ScaleMode) float64 {
	m := MaxNorm(field)
	switch mode {
	case Const:
		return m
	case Scale:
		if m > 0 {
			ScaleInPlace(field, eps/m)
		}
		return m
	case ScaleDown:
		if m > eps && m > 0 {
			ScaleInPlace(field, eps/m)
		}
		return m
	default:
		panic("kernel: unknown scale mode")
	}
}
