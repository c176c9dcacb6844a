package pyramid

import "github.com/CBICA/greedy/internal/ndimage"

// downsampleAverage produces a new image at factor-times coarser
// resolution by averaging each factor^D block of input voxels (blocks
// are clipped at the image border, matching Geometry.Downsample's
// ceil-division output size).
func downsampleAverage(src *ndimage.Image, factor int) *ndimage.Image {
	outGeom := src.Geom.Downsample(factor)
	out := ndimage.New(outGeom, src.Kind, src.Channels)
	d := src.Geom.D
	srcSize := src.Geom.Size

	for v := 0; v < out.NumVoxels(); v++ {
		oidx := out.MultiIndex(v)
		base := make([]int, d)
		blockSize := make([]int, d)
		for a := 0; a < d; a++ {
			base[a] = oidx[a] * factor
			end := base[a] + factor
			if end > srcSize[a] {
				end = srcSize[a]
			}
			blockSize[a] = end - base[a]
		}

		acc := make([]float64, src.Channels)
		count := 0
		forEachOffset(blockSize, func(off []int) {
			idx := make([]int, d)
			for a := 0; a < d; a++ {
				idx[a] = base[a] + off[a]
			}
			vals := src.At(idx)
			for c := range acc {
				acc[c] += vals[c]
			}
			count++
		})
		for c := range acc {
			acc[c] /= float64(count)
		}
		out.SetLinear(v, acc)
	}
	return out
}

// forEachOffset calls visit once for every multi-index in
// [0,size[0]) x [0,size[1]) x ... x [0,size[D-1]).
func forEachOffset(size []int, visit func(off []int)) {
	d := len(size)
	off := make([]int, d)
	var rec func(axis int)
	rec = func(axis int) {
		if axis == d {
			visit(off)
			return
		}
		for off[axis] = 0; off[axis] < size[axis]; off[axis]++ {
			rec(axis + 1)
		}
	}
	rec(0)
}
