package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/alpha-grader/internal/config"
)

var cfg *config.Config

// rootOptions are persistent flags that override the loaded config.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	profile    string
}

var rootOpts rootOptions

var rootCmd = &cobra.Command{
	Use:   "alpha-grader",
	Short: "Player Alpha grading pipeline",
	Long: `Grades fantasy-football players 0-100 per position and week, caches the
grades by version, and serves cohorts over a CLI and a read API.

Settings come from --config (or ./config.yaml), then ALPHA_* environment
variables, then the flags below.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(rootOpts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		rootOpts.apply(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		zap.L().Debug("config loaded",
			zap.String("command", cmd.CommandPath()),
			zap.String("store", cfg.Store.Driver),
			zap.String("provider", cfg.Provider.Source),
			zap.String("cache", cfg.Cache.Backend),
			zap.String("grading_version", cfg.Grading.Version),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootOpts.configPath, "config", "", "config file (default ./config.yaml)")
	f.StringVar(&rootOpts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	f.StringVar(&rootOpts.logFormat, "log-format", "", "override log.format (json or console)")
	f.StringVar(&rootOpts.profile, "profile", "", "override grading.profile_path")
}

// apply copies the non-empty flag values onto c.
func (o rootOptions) apply(c *config.Config) {
	if o.logLevel != "" {
		c.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		c.Log.Format = o.logFormat
	}
	if o.profile != "" {
		c.Grading.ProfilePath = o.profile
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
