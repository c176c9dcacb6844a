// Package ioiface defines the read/write seams the core registration
// packages and the CLI program against. Image and transform file I/O
// is out of scope for the engine itself (spec.md §6 treats formats as
// an external concern); this package only fixes the interfaces, plus a
// minimal built-in codec sufficient to drive the CLI end to end on its
// own simple format.
package ioiface

import (
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
)

// ImageReader loads a dense image (intensity composite or label map)
// from a path, returning its voxel data and geometry.
type ImageReader interface {
	ReadImage(path string) (*ndimage.Image, error)
}

// ImageWriter persists a dense image to a path.
type ImageWriter interface {
	WriteImage(path string, im *ndimage.Image) error
}

// AffineFileReader loads a (D+1)x(D+1) RAS affine transform from a path,
// recognizing both the ITK-style serialized-transform text format and a
// plain whitespace-separated matrix, per spec.md §6.
type AffineFileReader interface {
	ReadAffine(path string) (*geom.HomogeneousMatrix, error)
}

// AffineFileWriter persists a RAS affine transform to a path in the
// plain whitespace-separated matrix format.
type AffineFileWriter interface {
	WriteAffine(path string, m *geom.HomogeneousMatrix) error
}
