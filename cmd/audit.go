package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/alpha-grader/internal/monitoring"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the latest cached cohort of every position and recent run health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		season, _ := cmd.Flags().GetInt("season")
		version, _ := cmd.Flags().GetString("version")

		env, err := initEnv(ctx, cfg, "read", false)
		if err != nil {
			return err
		}
		defer env.Close()

		if version == "" {
			version = env.Engine.Version()
		}
		checker := newChecker(env, season, version)
		alerts := checker.Check(ctx)

		if len(alerts) == 0 {
			fmt.Fprintln(os.Stderr, "No guardrail alerts.")
			return nil
		}
		return writeJSON(os.Stdout, alerts)
	},
}

// newChecker builds a guardrail checker over the env's store.
func newChecker(env *gradingEnv, season int, version string) *monitoring.Checker {
	return monitoring.NewChecker(
		env.Store,
		env.Auditor,
		monitoring.NewCollector(env.Store),
		env.Alerter,
		env.Metrics,
		cfg.Monitoring,
		monitoring.Scope{Season: season, Version: version},
	)
}

func init() {
	auditCmd.Flags().Int("season", 0, "season to audit (required)")
	auditCmd.Flags().String("version", "", "cache version (default from profile)")
	_ = auditCmd.MarkFlagRequired("season")
	rootCmd.AddCommand(auditCmd)
}
