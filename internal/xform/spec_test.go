package xform

import (
	"errors"
	"testing"

	"github.com/CBICA/greedy/internal/rerr"
)

func TestParseSpecStringDefaultsExponentToOne(t *testing.T) {
	path, exp, err := ParseSpecString("warp.nii.gz")
	if err != nil {
		t.Fatal(err)
	}
	if path != "warp.nii.gz" || exp != 1 {
		t.Errorf("got path=%q exp=%d", path, exp)
	}
}

func TestParseSpecStringParsesExplicitExponent(t *testing.T) {
	path, exp, err := ParseSpecString("affine.txt,-1")
	if err != nil {
		t.Fatal(err)
	}
	if path != "affine.txt" || exp != -1 {
		t.Errorf("got path=%q exp=%d", path, exp)
	}
}

func TestParseSpecStringRejectsInvalidExponent(t *testing.T) {
	if _, _, err := ParseSpecString("affine.txt,2"); err == nil {
		t.Error("expected error for exponent outside {+1,-1}")
	}
}

func TestParseSpecStringRejectsNonNumericExponent(t *testing.T) {
	if _, _, err := ParseSpecString("affine.txt,abc"); err == nil {
		t.Error("expected error for non-integer exponent")
	}
}

func TestParseSpecStringRejectsEmptyPath(t *testing.T) {
	if _, _, err := ParseSpecString(""); err == nil {
		t.Error("expected error for empty transform spec")
	}
}

func TestParseSpecStringAcceptsDecimalOneExponent(t *testing.T) {
	path, exp, err := ParseSpecString("warp.nii.gz,1.0")
	if err != nil {
		t.Fatal(err)
	}
	if path != "warp.nii.gz" || exp != 1 {
		t.Errorf("got path=%q exp=%d", path, exp)
	}
}

func TestParseSpecStringRejectsDecimalOutOfRangeExponentAsConfigError(t *testing.T) {
	_, _, err := ParseSpecString("affine.txt,2.0")
	if err == nil {
		t.Fatal("expected error for exponent outside {+1,-1}")
	}
	var configErr *rerr.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("expected a *rerr.ConfigError for an out-of-range decimal exponent, got %T", err)
	}
}
