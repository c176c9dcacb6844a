package main

import (
	"github.com/CBICA/greedy/internal/config"
	"github.com/CBICA/greedy/internal/deform"
	"github.com/CBICA/greedy/internal/ioiface"
	"github.com/CBICA/greedy/internal/pyramid"
	"github.com/spf13/cobra"
)

var (
	regCommon        *commonInputFlags
	regOutput        string
	regIterations    string
	regPreSigma      string
	regPostSigma     string
	regStepScale     string
	regStepEps       float64
	regGradientMask  string
	regInitialAffine string
	regInverseOut    string
	regInverseExp    int
	regWarpQuant     float64
	regDumpFreq      int
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Run the greedy deformable solver (default registration mode)",
	RunE:  runRegister,
}

func init() {
	regCommon = addCommonInputFlags(registerCmd)
	registerCmd.Flags().StringVarP(&regOutput, "output", "o", "", "Output displacement field path (required)")
	registerCmd.Flags().StringVarP(&regIterations, "iterations", "n", "100x50x10", "Iteration schedule, coarse to fine, e.g. 100x50x10")
	registerCmd.Flags().StringVar(&regPreSigma, "sigma-pre", "1.0vox", "Pre-update smoothing sigma")
	registerCmd.Flags().StringVar(&regPostSigma, "sigma-post", "0.5vox", "Post-update smoothing sigma")
	registerCmd.Flags().StringVar(&regStepScale, "tscale", "CONST", "Step-size policy: CONST, SCALE, or SCALEDOWN")
	registerCmd.Flags().Float64VarP(&regStepEps, "step-size", "e", 1.0, "Step size epsilon")
	registerCmd.Flags().StringVar(&regGradientMask, "gradient-mask", "", "Gradient mask image path")
	registerCmd.Flags().StringVar(&regInitialAffine, "initial-affine", "", "Initial affine transform path (RAS)")
	registerCmd.Flags().StringVar(&regInverseOut, "inverse-output", "", "Write the inverse displacement field here")
	registerCmd.Flags().IntVar(&regInverseExp, "inverse-exponent", 1, "Inverse exponent, +1 or -1")
	registerCmd.Flags().Float64Var(&regWarpQuant, "warp-precision", 0, "Warp quantization step in voxels (0 disables)")
	registerCmd.Flags().IntVar(&regDumpFreq, "dump-freq", 0, "Dump interval in iterations (0 disables); dumps go to a no-op dumper, so nothing is written")
	registerCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	pairSpecs, err := parsePairSpecs(regCommon.pairs)
	if err != nil {
		return err
	}
	common := config.Common{Pairs: pairSpecs, Dims: regCommon.dims, OutputPath: regOutput, Threads: regCommon.threads}
	if err := common.Validate(); err != nil {
		return err
	}

	metricSpec, err := metricSpecFromFlags(regCommon)
	if err != nil {
		return err
	}
	m, err := metricSpec.Build()
	if err != nil {
		return err
	}

	iterations, err := config.ParseIterationSchedule(regIterations)
	if err != nil {
		return err
	}
	preSigma, err := config.ParseSigma(regPreSigma)
	if err != nil {
		return err
	}
	postSigma, err := config.ParseSigma(regPostSigma)
	if err != nil {
		return err
	}

	deformCfg := config.Deformable{
		Iterations:        iterations,
		Metric:            metricSpec,
		PreSigma:          preSigma,
		PostSigma:         postSigma,
		StepScale:         regStepScale,
		StepEps:           regStepEps,
		GradientMaskPath:  regGradientMask,
		InitialAffinePath: regInitialAffine,
		InverseOutputPath: regInverseOut,
		InverseExponent:   regInverseExp,
		WarpQuantization:  regWarpQuant,
		DumpFreq:          regDumpFreq,
	}
	if err := deformCfg.Validate(); err != nil {
		return err
	}

	var codec ioiface.RawCodec
	var affineCodec ioiface.AffineCodec

	pyr, err := loadPyramid(codec, pairSpecs, len(iterations), pyramid.Options{NoiseForNCC: metricSpec.Kind == config.NCC, NCCNoiseAmplitude: 1e-6, Seed: 1})
	if err != nil {
		return err
	}

	initialAffine, err := loadInitialAffine(affineCodec, regInitialAffine)
	if err != nil {
		return err
	}

	maskImg, err := loadOptionalMask(codec, regGradientMask)
	if err != nil {
		return err
	}

	opts, err := deformCfg.ToOptions(regCommon.dims, maskImg, deform.NoopDumper)
	if err != nil {
		return err
	}

	result, err := deform.Solve(pyr, m, initialAffine, opts, logger)
	if err != nil {
		return err
	}

	deformCfg.QuantizeWarp(result.Final)
	if err := codec.WriteImage(regOutput, result.Final); err != nil {
		return err
	}

	if regInverseOut != "" {
		inv, err := deform.InvertDisplacement(result.Final, 3, 50, 1e-6)
		if err != nil {
			logger.Warn("inverse warp did not fully converge", "error", err)
		}
		if err := codec.WriteImage(regInverseOut, inv); err != nil {
			return err
		}
	}

	logger.Info("registration complete", "final_value", result.Levels[len(result.Levels)-1].FinalValue)
	return nil
}
