package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/grading"
	"github.com/sells-group/alpha-grader/internal/model"
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Grade every eligible player of one position and cache the grades",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := computeOptions(cmd)
		if err != nil {
			return err
		}
		position, _ := cmd.Flags().GetString("position")
		season, _ := cmd.Flags().GetInt("season")
		week, _ := cmd.Flags().GetInt("week")

		env, err := initEnv(ctx, cfg, "compute", true)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ComputeAndCacheGrades(ctx, position, season, week, opts)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, res)
	},
}

var computeAllCmd = &cobra.Command{
	Use:   "compute-all",
	Short: "Grade QB, RB, WR and TE concurrently",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := computeOptions(cmd)
		if err != nil {
			return err
		}
		season, _ := cmd.Flags().GetInt("season")
		week, _ := cmd.Flags().GetInt("week")

		env, err := initEnv(ctx, cfg, "compute", true)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ComputeAllGrades(ctx, season, week, opts)
		if err != nil {
			return err
		}
		zap.L().Info("compute-all complete",
			zap.Int("computed", res.Computed),
			zap.Int("errors", res.Errors),
			zap.Int64("duration_ms", res.DurationMs),
		)
		return writeJSON(os.Stdout, res)
	},
}

// computeOptions reads the batch flags shared by compute and compute-all.
func computeOptions(cmd *cobra.Command) (grading.Options, error) {
	limit, _ := cmd.Flags().GetInt("limit")
	version, _ := cmd.Flags().GetString("version")
	modeFlag, _ := cmd.Flags().GetString("mode")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	opts := grading.Options{Limit: limit, Version: version, Concurrency: concurrency}
	if modeFlag != "" {
		mode, err := model.ParseMode(modeFlag)
		if err != nil {
			return grading.Options{}, err
		}
		opts.Mode = mode
	}
	return opts, nil
}

func addComputeFlags(c *cobra.Command) {
	c.Flags().Int("season", 0, "season to grade (required)")
	c.Flags().Int("week", 0, "as-of week to grade (required)")
	c.Flags().Int("limit", 0, "max players per position (default from config)")
	c.Flags().String("version", "", "cache version (default from profile)")
	c.Flags().String("mode", "", "redraft, dynasty or bestball (default from config)")
	c.Flags().Int("concurrency", 0, "concurrent players (default from config)")
	_ = c.MarkFlagRequired("season")
	_ = c.MarkFlagRequired("week")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	addComputeFlags(computeCmd)
	computeCmd.Flags().String("position", "", "QB, RB, WR or TE (required)")
	_ = computeCmd.MarkFlagRequired("position")
	addComputeFlags(computeAllCmd)

	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(computeAllCmd)
}
