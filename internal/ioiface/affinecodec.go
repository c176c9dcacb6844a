package ioiface

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/rerr"
)

const itkHeaderLine = "#Insight Transform File"

// AffineCodec reads and writes RAS affine matrices in the two formats
// spec.md §6 documents: an ITK-style serialized transform (recognized
// by its header line) or a plain (D+1)x(D+1) whitespace-separated
// matrix text file.
type AffineCodec struct{}

func (AffineCodec) ReadAffine(path string) (*geom.HomogeneousMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &rerr.InputError{What: "cannot open affine file: " + path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, &rerr.InputError{What: "cannot read affine file: " + path, Err: err}
	}
	if len(lines) == 0 {
		return nil, &rerr.InputError{What: "empty affine file: " + path}
	}

	if strings.HasPrefix(strings.TrimSpace(lines[0]), itkHeaderLine) {
		return parseITKTransform(lines, path)
	}
	return parsePlainMatrix(lines, path)
}

func (AffineCodec) WriteAffine(path string, m *geom.HomogeneousMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return &rerr.FatalError{What: "cannot create affine file: " + path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := m.D + 1
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if c > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.17g", m.Data.At(r, c))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// parsePlainMatrix reads a (D+1)x(D+1) whitespace-separated matrix,
// inferring D from the row count.
func parsePlainMatrix(lines []string, path string) (*geom.HomogeneousMatrix, error) {
	var rows [][]float64
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &rerr.InputError{What: "malformed affine matrix entry in " + path, Err: err}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	n := len(rows)
	if n < 2 {
		return nil, &rerr.InputError{What: "affine matrix file has too few rows: " + path}
	}
	for _, row := range rows {
		if len(row) != n {
			return nil, &rerr.InputError{What: "affine matrix file is not square: " + path}
		}
	}
	d := n - 1
	linear := make([]float64, d*d)
	offset := make([]float64, d)
	for r := 0; r < d; r++ {
		for c := 0; c < d; c++ {
			linear[r*d+c] = rows[r][c]
		}
		offset[r] = rows[r][d]
	}
	return geom.NewHomogeneous(linear, offset), nil
}

// parseITKTransform reads the subset of the ITK serialized-transform
// format this engine needs: a "Parameters:" line holding the linear
// block (row-major) followed by the translation, matching
// MatrixOffsetTransformBase's parameter layout. FixedParameters (the
// center of rotation) are not supported; transforms using a non-zero
// center must be pre-converted to a plain matrix file.
func parseITKTransform(lines []string, path string) (*geom.HomogeneousMatrix, error) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Parameters:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(trimmed, "Parameters:"))
		nums := make([]float64, len(fields))
		for i, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &rerr.InputError{What: "malformed ITK transform parameters in " + path, Err: err}
			}
			nums[i] = v
		}
		// len(nums) = d*d + d
		for d := 2; d <= 4; d++ {
			if len(nums) == d*d+d {
				linear := append([]float64(nil), nums[:d*d]...)
				offset := append([]float64(nil), nums[d*d:]...)
				return geom.NewHomogeneous(linear, offset), nil
			}
		}
		return nil, &rerr.InputError{What: "unrecognized ITK transform parameter count in " + path}
	}
	return nil, &rerr.InputError{What: "ITK transform file has no Parameters line: " + path}
}
