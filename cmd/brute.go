package main

import (
	"strconv"
	"strings"

	"github.com/CBICA/greedy/internal/brute"
	"github.com/CBICA/greedy/internal/config"
	"github.com/CBICA/greedy/internal/ioiface"
	"github.com/CBICA/greedy/internal/metric"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/CBICA/greedy/internal/rerr"
	"github.com/spf13/cobra"
)

var (
	bruteCommon *commonInputFlags
	bruteOutput string
	bruteRadius string
)

var bruteCmd = &cobra.Command{
	Use:   "brute",
	Short: "Run the exhaustive constant-offset NCC search",
	RunE:  runBrute,
}

func init() {
	bruteCommon = addCommonInputFlags(bruteCmd)
	bruteCmd.Flags().StringVarP(&bruteOutput, "output", "o", "", "Output displacement field path (required)")
	bruteCmd.Flags().StringVarP(&bruteRadius, "radius", "r", "", "Per-axis search radius, comma-separated (required)")
	bruteCmd.MarkFlagRequired("output")
	bruteCmd.MarkFlagRequired("radius")
	rootCmd.AddCommand(bruteCmd)
}

func parseRadius(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, &rerr.InputError{What: "malformed brute-force radius: " + s, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

func runBrute(cmd *cobra.Command, args []string) error {
	pairSpecs, err := parsePairSpecs(bruteCommon.pairs)
	if err != nil {
		return err
	}
	common := config.Common{Pairs: pairSpecs, Dims: bruteCommon.dims, OutputPath: bruteOutput, Threads: bruteCommon.threads}
	if err := common.Validate(); err != nil {
		return err
	}

	metricSpec, err := metricSpecFromFlags(bruteCommon)
	if err != nil {
		return err
	}
	if err := config.ValidateMetric(metricSpec); err != nil {
		return err
	}

	radius, err := parseRadius(bruteRadius)
	if err != nil {
		return err
	}
	bruteCfg := config.Brute{Radius: radius}
	if err := bruteCfg.Validate(bruteCommon.dims); err != nil {
		return err
	}

	var codec ioiface.RawCodec
	pyr, err := loadPyramid(codec, pairSpecs, 1, pyramid.Options{NoiseForNCC: true, NCCNoiseAmplitude: 1e-6, Seed: 1})
	if err != nil {
		return err
	}

	field, err := brute.Solve(pyr.Level(0), metric.NewNCC(bruteCommon.nccRadius), bruteCfg.ToOptions(), logger)
	if err != nil {
		return err
	}

	if err := codec.WriteImage(bruteOutput, field); err != nil {
		return err
	}
	logger.Info("brute-force search written", "output", bruteOutput)
	return nil
}
