package ioiface

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/rerr"
)

// rawMagic tags the built-in codec's header so a misidentified file
// fails fast instead of being silently misread as geometry garbage.
const rawMagic uint32 = 0x67726479 // "grdy"

// RawCodec is the engine's minimal built-in image codec: a fixed binary
// header (magic, dimensionality, size, origin, spacing, direction,
// channel count) followed by the raw float64 voxel data, little-endian
// throughout. It exists to drive the CLI and its end-to-end tests
// without depending on a real NIfTI/ITK library; any real deployment is
// expected to supply its own ImageReader/ImageWriter against the actual
// file formats in use.
type RawCodec struct{}

func (RawCodec) ReadImage(path string) (*ndimage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &rerr.InputError{What: "cannot open image file: " + path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, &rerr.InputError{What: "cannot read image header: " + path, Err: err}
	}
	if magic != rawMagic {
		return nil, &rerr.InputError{What: "not a recognized image file: " + path}
	}

	var d, channels int32
	if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
		return nil, &rerr.InputError{What: "cannot read image header: " + path, Err: err}
	}
	if err := binary.Read(r, binary.LittleEndian, &channels); err != nil {
		return nil, &rerr.InputError{What: "cannot read image header: " + path, Err: err}
	}

	size := make([]int, d)
	if err := readIntSlice(r, size); err != nil {
		return nil, &rerr.InputError{What: "cannot read image size: " + path, Err: err}
	}
	origin, err := readFloatSlice(r, int(d))
	if err != nil {
		return nil, &rerr.InputError{What: "cannot read image origin: " + path, Err: err}
	}
	spacing, err := readFloatSlice(r, int(d))
	if err != nil {
		return nil, &rerr.InputError{What: "cannot read image spacing: " + path, Err: err}
	}
	direction, err := readFloatSlice(r, int(d*d))
	if err != nil {
		return nil, &rerr.InputError{What: "cannot read image direction: " + path, Err: err}
	}

	g, err := geom.NewGeometry(size, origin, spacing, direction)
	if err != nil {
		return nil, &rerr.InputError{What: "invalid image geometry in " + path, Err: err}
	}

	im := ndimage.New(g, ndimage.Composite, int(channels))
	data, err := readFloatSlice(r, len(im.Data))
	if err != nil {
		return nil, &rerr.InputError{What: "cannot read image data: " + path, Err: err}
	}
	im.Data = data
	return im, nil
}

func (RawCodec) WriteImage(path string, im *ndimage.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return &rerr.FatalError{What: "cannot create image file: " + path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	d := int32(im.Geom.D)
	channels := int32(im.Channels)
	if err := binary.Write(w, binary.LittleEndian, rawMagic); err != nil {
		return &rerr.FatalError{What: "cannot write image header: " + path, Err: err}
	}
	if err := binary.Write(w, binary.LittleEndian, d); err != nil {
		return &rerr.FatalError{What: "cannot write image header: " + path, Err: err}
	}
	if err := binary.Write(w, binary.LittleEndian, channels); err != nil {
		return &rerr.FatalError{What: "cannot write image header: " + path, Err: err}
	}
	if err := writeIntSlice(w, im.Geom.Size); err != nil {
		return &rerr.FatalError{What: "cannot write image size: " + path, Err: err}
	}
	if err := writeFloatSlice(w, im.Geom.Origin); err != nil {
		return &rerr.FatalError{What: "cannot write image origin: " + path, Err: err}
	}
	if err := writeFloatSlice(w, im.Geom.Spacing); err != nil {
		return &rerr.FatalError{What: "cannot write image spacing: " + path, Err: err}
	}
	if err := writeFloatSlice(w, im.Geom.Direction); err != nil {
		return &rerr.FatalError{What: "cannot write image direction: " + path, Err: err}
	}
	if err := writeFloatSlice(w, im.Data); err != nil {
		return &rerr.FatalError{What: "cannot write image data: " + path, Err: err}
	}
	return w.Flush()
}

func readIntSlice(r io.Reader, out []int) error {
	for i := range out {
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		out[i] = int(v)
	}
	return nil
}

func writeIntSlice(w io.Writer, in []int) error {
	for _, v := range in {
		if err := binary.Write(w, binary.LittleEndian, int32(v)); err != nil {
			return err
		}
	}
	return nil
}

func readFloatSlice(r io.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeFloatSlice(w io.Writer, in []float64) error {
	return binary.Write(w, binary.LittleEndian, in)
}
