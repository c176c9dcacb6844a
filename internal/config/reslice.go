package config

import (
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/rerr"
	"github.com/CBICA/greedy/internal/xform"
)

// ResliceTarget is one `-rm moving out` pair.
type ResliceTarget struct {
	MovingPath string
	OutputPath string
}

// Reslice holds the validated flags for the `reslice` mode.
type Reslice struct {
	ReferencePath  string
	Targets        []ResliceTarget
	Interp         string // NN, LINEAR, or LABEL
	LabelSigma     float64
	TransformSpecs []string // -it / -r chain, in application order
}

func (c Reslice) Validate() error {
	if c.ReferencePath == "" {
		return &rerr.InputError{What: "reslice requires a reference image (--reference)"}
	}
	if len(c.Targets) == 0 {
		return &rerr.InputError{What: "reslice requires at least one moving image and output path (--moving, --out)"}
	}
	return nil
}

// ParseInterp maps the `-ri` flag's argument (with an optional trailing
// sigma for LABEL) to xform.ResliceOptions.
func ParseInterp(s string, labelSigma float64) (xform.ResliceOptions, error) {
	fields := strings.Fields(s)
	mode := ""
	if len(fields) > 0 {
		mode = strings.ToUpper(fields[0])
	}
	switch mode {
	case "NN":
		return xform.ResliceOptions{Mode: xform.Nearest}, nil
	case "LINEAR", "":
		return xform.ResliceOptions{Mode: xform.Linear}, nil
	case "LABEL":
		sigma := labelSigma
		if len(fields) > 1 {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return xform.ResliceOptions{}, &rerr.InputError{What: "malformed LABEL sigma: " + fields[1], Err: err}
			}
			sigma = v
		}
		// World units by default: the documented intent (spec.md §9's
		// open question). Unlike the source this engine descends from,
		// the unit is part of the option struct, not left implicit.
		return xform.ResliceOptions{Mode: xform.Label, Sigma: sigma, SigmaUnit: xform.SigmaMillimeters}, nil
	default:
		return xform.ResliceOptions{}, &rerr.InputError{What: "unknown reslice interpolation mode: " + s}
	}
}
