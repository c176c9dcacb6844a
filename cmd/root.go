package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/CBICA/greedy/internal/kernel"
)

var (
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "greedy",
	Short: "Deformable, affine, and brute-force image registration",
	Long: `greedy registers a moving image onto a fixed image using a
multi-resolution pyramid and a choice of deformable, affine, or
brute-force discrete solvers, and can reslice images through the
resulting transform chain.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
		slog.SetDefault(logger)

		if n, err := cmd.Flags().GetInt("threads"); err == nil && n > 0 {
			kernel.Threads = n
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
