// Package xform implements the transform chain and reslicer (C8):
// parsing `file[,exponent]` transform specs, composing a chain of
// displacement fields and affine matrices in the reference space, and
// resampling output images through the composed field — linear,
// nearest, or labelwise for discrete label maps, per §4.8.
package xform

import (
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/rerr"
)

// Kind distinguishes the two transform-spec shapes a chain entry may
// hold once its referenced file has been loaded.
type Kind int

const (
	// KindField holds a displacement field (warp).
	KindField Kind = iota
	// KindAffine holds a linear transform (RAS, physical).
	KindAffine
)

// ParseSpecString splits a CLI-style `path[,exponent]` transform spec
// into its file path and exponent, validating the exponent is +1 or -1
// (the only values currently supported). The exponent is a decimal
// number per §6/§9 — it is parsed as a float so that a value like "1.0"
// is accepted and something like "2.0" is correctly rejected as an
// out-of-range configuration error rather than, as a plain integer
// parse would do, failing to parse at all.
func ParseSpecString(s string) (path string, exponent int, err error) {
	parts := strings.SplitN(s, ",", 2)
	path = parts[0]
	if path == "" {
		return "", 0, &rerr.InputError{What: "transform spec has an empty file path"}
	}
	if len(parts) == 1 {
		return path, 1, nil
	}
	raw := strings.TrimSpace(parts[1])
	value, convErr := strconv.ParseFloat(raw, 64)
	if convErr != nil {
		return "", 0, &rerr.InputError{What: "transform spec exponent is not a number: " + raw, Err: convErr}
	}
	switch value {
	case 1:
		exponent = 1
	case -1:
		exponent = -1
	default:
		return "", 0, &rerr.ConfigError{What: "transform spec exponent must be +1 or -1, got " + raw}
	}
	return path, exponent, nil
}

// ChainEntry is one resolved link in a transform chain: a loaded
// displacement field or affine matrix, plus its exponent.
type ChainEntry struct {
	Kind     Kind
	Exponent int
	Field    *ndimage.Image          // set when Kind == KindField
	Affine   *geom.HomogeneousMatrix // set when Kind == KindAffine, RAS convention
}
