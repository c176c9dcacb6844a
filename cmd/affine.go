package main

import (
	"github.com/CBICA/greedy/internal/affine"
	"github.com/CBICA/greedy/internal/config"
	"github.com/CBICA/greedy/internal/geom"
	"github.com/CBICA/greedy/internal/ioiface"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/spf13/cobra"
)

var (
	affCommon        *commonInputFlags
	affOutput        string
	affLevels        int
	affMethod        string
	affJitter        float64
	affSeed          int64
	affInitialAffine string
	affDebugDeriv    bool
	affDebugEps      float64
	affMayflyPop     int
)

var affineCmd = &cobra.Command{
	Use:   "affine",
	Short: "Run the affine solver",
	RunE:  runAffine,
}

func init() {
	affCommon = addCommonInputFlags(affineCmd)
	affineCmd.Flags().StringVarP(&affOutput, "output", "o", "", "Output affine matrix path (required)")
	affineCmd.Flags().IntVar(&affLevels, "levels", 3, "Pyramid level count")
	affineCmd.Flags().StringVar(&affMethod, "method", "BFGS", "Optimization method: BFGS, NELDERMEAD, or MAYFLY")
	affineCmd.Flags().Float64Var(&affJitter, "jitter", 0.4, "Identity-jitter amplitude at level 0 (scaled space)")
	affineCmd.Flags().Int64Var(&affSeed, "seed", 1, "Random seed")
	affineCmd.Flags().StringVar(&affInitialAffine, "initial-affine", "", "Initial affine transform path (RAS)")
	affineCmd.Flags().BoolVar(&affDebugDeriv, "debug-deriv", false, "Log a numerical-vs-analytic derivative check per level")
	affineCmd.Flags().Float64Var(&affDebugEps, "debug-deriv-eps", 1e-4, "Finite-difference step for --debug-deriv")
	affineCmd.Flags().IntVar(&affMayflyPop, "mayfly-pop", 30, "Mayfly population size (MAYFLY method only)")
	affineCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(affineCmd)
}

func runAffine(cmd *cobra.Command, args []string) error {
	pairSpecs, err := parsePairSpecs(affCommon.pairs)
	if err != nil {
		return err
	}
	common := config.Common{Pairs: pairSpecs, Dims: affCommon.dims, OutputPath: affOutput, Threads: affCommon.threads}
	if err := common.Validate(); err != nil {
		return err
	}

	metricSpec, err := metricSpecFromFlags(affCommon)
	if err != nil {
		return err
	}
	m, err := metricSpec.Build()
	if err != nil {
		return err
	}

	affCfg := config.Affine{
		Method:            affMethod,
		JitterAmplitude:   affJitter,
		Seed:              affSeed,
		InitialAffinePath: affInitialAffine,
		DebugDeriv:        affDebugDeriv,
		DebugEps:          affDebugEps,
		MayflyPopSize:     affMayflyPop,
	}
	if err := affCfg.Validate(); err != nil {
		return err
	}

	var codec ioiface.RawCodec
	var affineCodec ioiface.AffineCodec

	pyr, err := loadPyramid(codec, pairSpecs, affLevels, pyramid.Options{NoiseForNCC: metricSpec.Kind == config.NCC, NCCNoiseAmplitude: 1e-6, Seed: affSeed})
	if err != nil {
		return err
	}

	initialAffine, err := loadInitialAffine(affineCodec, affInitialAffine)
	if err != nil {
		return err
	}

	opts, err := affCfg.ToOptions(initialAffine)
	if err != nil {
		return err
	}

	result, err := affine.Solve(pyr, m, opts, logger)
	if err != nil {
		return err
	}

	finestGeom := pyr.GetReferenceSpace(pyr.Len() - 1)
	ras := geom.VoxelToRAS(result.Final, finestGeom)
	if err := affineCodec.WriteAffine(affOutput, ras); err != nil {
		return err
	}

	logger.Info("affine registration complete", "final_value", result.Levels[len(result.Levels)-1].Value)
	return nil
}
