package config

import (
	"github.com/CBICA/greedy/internal/deform"
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/rerr"
)

// Deformable holds the validated flags for the default registration
// mode (`register`, greedy deformable solver).
type Deformable struct {
	Iterations        []int
	Metric            MetricSpec
	PreSigma          Sigma
	PostSigma         Sigma
	StepScale         string
	StepEps           float64
	GradientMaskPath  string
	InitialAffinePath string
	TransformChain    []string
	InverseOutputPath string
	InverseExponent   int
	WarpQuantization  float64
	DumpMoving        string
	DumpFreq          int
}

// Validate checks field combinations that do not require loading any
// file — the exponent range, a positive step epsilon, a non-negative
// warp-quantization value.
func (c Deformable) Validate() error {
	if len(c.Iterations) == 0 {
		return &rerr.InputError{What: "an iteration schedule (-n) is required"}
	}
	if c.StepEps <= 0 {
		return &rerr.ConfigError{What: "step epsilon (-e) must be positive"}
	}
	if c.InverseOutputPath != "" && c.InverseExponent != 1 && c.InverseExponent != -1 {
		return &rerr.ConfigError{What: "inverse exponent must be +1 or -1"}
	}
	if c.WarpQuantization < 0 {
		return &rerr.ConfigError{What: "warp quantization must be non-negative"}
	}
	return nil
}

// ToOptions builds the deform.Options this config describes. mask is
// the gradient mask already loaded by the caller (nil if -gm was not
// given); dumper receives periodic displacement-field dumps (nil
// defaults to deform.NoopDumper).
func (c Deformable) ToOptions(d int, mask *ndimage.Image, dumper deform.Dumper) (deform.Options, error) {
	stepMode, err := ParseStepScale(c.StepScale)
	if err != nil {
		return deform.Options{}, err
	}
	if dumper == nil {
		dumper = deform.NoopDumper
	}
	return deform.Options{
		Iterations:   c.Iterations,
		StepEps:      c.StepEps,
		StepMode:     stepMode,
		PreSigma:     broadcast(c.PreSigma.Value, d),
		PostSigma:    broadcast(c.PostSigma.Value, d),
		SigmaInMM:    c.PreSigma.InMM || c.PostSigma.InMM,
		GradientMask: mask,
		Dumper:       dumper,
		DumpFreq:     c.DumpFreq,
	}, nil
}

// quantize rounds each displacement component to the nearest multiple
// of stepVoxels, implementing the `-wp` warp-precision compression
// described in spec.md §6. stepVoxels <= 0 disables quantization.
func quantize(u *ndimage.Image, stepVoxels float64) {
	if stepVoxels <= 0 {
		return
	}
	kernel.Parallel(u.NumVoxels(), func(start, end int) {
		for v := start; v < end; v++ {
			val := u.AtLinear(v)
			for c := range val {
				val[c] = stepVoxels * roundToNearest(val[c]/stepVoxels)
			}
		}
	})
}

func roundToNearest(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}

// QuantizeWarp applies this config's -wp warp precision to u in place.
func (c Deformable) QuantizeWarp(u *ndimage.Image) {
	quantize(u, c.WarpQuantization)
}
