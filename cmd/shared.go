package main

import (
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/config"
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ioiface"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/CBICA/greedy/internal/rerr"
	"github.com/spf13/cobra"
)

// commonInputFlags holds the flags shared by every registration mode:
// input pairs, dimensionality, metric choice, thread count.
type commonInputFlags struct {
	pairs     []string
	dims      int
	metric    string
	nccRadius int
	miBins    int
	threads   int
}

func addCommonInputFlags(cmd *cobra.Command) *commonInputFlags {
	c := &commonInputFlags{}
	cmd.Flags().StringSliceVarP(&c.pairs, "input", "i", nil, "fixed:moving[:weight] image pair (repeatable)")
	cmd.Flags().IntVarP(&c.dims, "dim", "d", 3, "Image dimensionality (2, 3, or 4)")
	cmd.Flags().StringVarP(&c.metric, "metric", "m", "SSD", "Similarity metric: SSD, NCC, or MI")
	cmd.Flags().IntVar(&c.nccRadius, "ncc-radius", 2, "NCC patch radius in voxels")
	cmd.Flags().IntVar(&c.miBins, "mi-bins", 32, "MI histogram bin count")
	cmd.Flags().IntVar(&c.threads, "threads", 0, "Worker thread count (0 = runtime default)")
	return c
}

// parsePairSpecs turns the `fixed:moving[:weight]` flag values into
// config.PairSpec entries.
func parsePairSpecs(raw []string) ([]config.PairSpec, error) {
	out := make([]config.PairSpec, len(raw))
	for i, s := range raw {
		fields := strings.Split(s, ":")
		if len(fields) < 2 {
			return nil, &rerr.InputError{What: "malformed -i pair, want fixed:moving[:weight]: " + s}
		}
		weight := 1.0
		if len(fields) > 2 {
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, &rerr.InputError{What: "malformed pair weight: " + s, Err: err}
			}
			weight = v
		}
		out[i] = config.PairSpec{FixedPath: fields[0], MovingPath: fields[1], Weight: weight}
	}
	return out, nil
}

// loadPyramid reads every pair's images through codec and builds the
// multi-resolution pyramid.
func loadPyramid(codec ioiface.ImageReader, specs []config.PairSpec, levelCount int, opts pyramid.Options) (*pyramid.Pyramid, error) {
	pairs := make([]pyramid.Pair, len(specs))
	for i, s := range specs {
		fixed, err := codec.ReadImage(s.FixedPath)
		if err != nil {
			return nil, err
		}
		moving, err := codec.ReadImage(s.MovingPath)
		if err != nil {
			return nil, err
		}
		pairs[i] = pyramid.Pair{Fixed: fixed, Moving: moving, Weight: s.Weight}
	}
	p, err := pyramid.Build(pairs, levelCount, opts)
	if err != nil {
		return nil, &rerr.InputError{What: "cannot build pyramid", Err: err}
	}
	return p, nil
}

func metricSpecFromFlags(c *commonInputFlags) (config.MetricSpec, error) {
	kind, err := config.ParseMetricName(c.metric)
	if err != nil {
		return config.MetricSpec{}, err
	}
	return config.MetricSpec{Kind: kind, NCCRadius: c.nccRadius, MIBins: c.miBins}, nil
}

// loadInitialAffine reads an optional -ia matrix file, returning nil
// when path is empty.
func loadInitialAffine(codec ioiface.AffineFileReader, path string) (*geom.HomogeneousMatrix, error) {
	if path == "" {
		return nil, nil
	}
	return codec.ReadAffine(path)
}

// loadOptionalMask reads a -gm gradient mask image, returning nil when
// path is empty.
func loadOptionalMask(codec ioiface.ImageReader, path string) (*ndimage.Image, error) {
	if path == "" {
		return nil, nil
	}
	return codec.ReadImage(path)
}
