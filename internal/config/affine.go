package config

import (
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/affine"
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/rerr"
)

// Affine holds the validated flags for the `affine` registration mode.
type Affine struct {
	Method            string
	MaxEvals          []int
	JitterAmplitude   float64
	Seed              int64
	InitialAffinePath string
	DebugDeriv        bool
	DebugEps          float64
	MayflyPopSize     int
}

// ParseMethod maps the `-powell`/method selector vocabulary onto
// affine.Method.
func ParseMethod(s string) (affine.Method, error) {
	switch strings.ToUpper(s) {
	case "BFGS", "":
		return affine.MethodBFGS, nil
	case "NELDERMEAD", "POWELL":
		return affine.MethodNelderMead, nil
	case "MAYFLY":
		return affine.MethodMayfly, nil
	default:
		return affine.MethodBFGS, &rerr.InputError{What: "unknown affine optimization method: " + s}
	}
}

func (c Affine) Validate() error {
	for i, n := range c.MaxEvals {
		if n <= 0 {
			return &rerr.ConfigError{What: "max function evaluations must be positive (level " + strconv.Itoa(i) + ")"}
		}
	}
	return nil
}

// ToOptions builds the affine.Options this config describes. initialRAS
// is the already-loaded -ia matrix (nil when not given).
func (c Affine) ToOptions(initialRAS *geom.HomogeneousMatrix) (affine.Options, error) {
	method, err := ParseMethod(c.Method)
	if err != nil {
		return affine.Options{}, err
	}
	return affine.Options{
		Method:          method,
		MaxEvals:        c.MaxEvals,
		JitterAmplitude: c.JitterAmplitude,
		Seed:            c.Seed,
		InitialRAS:      initialRAS,
		DebugDeriv:      c.DebugDeriv,
		DebugEps:        c.DebugEps,
		MayflyPopSize:   c.MayflyPopSize,
	}, nil
}
